package sl

import (
	"log/slog"
	"os"
)

// EnvLocal окружение локальной разработки.
const EnvLocal = "local"

// New создает текстовый логгер: в окружении local с уровнем Debug, в остальных с Info.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == EnvLocal {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
