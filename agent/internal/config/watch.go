package config

import (
	"context"

	"github.com/signalguard/signalguard/pkg/reload"
)

// Watch calls onChange with the reloaded Config each time path changes.
// Invalid reloads are logged and dropped. It runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return reload.Watch(ctx, path, Load, onChange)
}
