// Package audio plays the announcement chime and speaks messages via
// an external TTS command. Best-effort: playback problems are logged
// and swallowed.
package audio

import (
	"context"
	"log/slog"
	"os/exec"
)

type Announcer struct {
	// Command to play the chime file, e.g. "mpg123". Skipped if
	// empty or ChimePath is unset.
	PlayerCmd string
	ChimePath string

	// Text-to-speech command, e.g. "espeak". The message is
	// passed as the final argument. Skipped if empty.
	VoiceCmd string

	logger *slog.Logger
}

func NewAnnouncer(playerCmd, chimePath, voiceCmd string, logger *slog.Logger) *Announcer {
	return &Announcer{
		PlayerCmd: playerCmd,
		ChimePath: chimePath,
		VoiceCmd:  voiceCmd,
		logger:    logger,
	}
}

func (a *Announcer) Announce(ctx context.Context, message string, playAudio bool) {
	a.logger.Info("announcement", "message", message, "audio", playAudio)

	if !playAudio {
		return
	}

	if a.PlayerCmd != "" && a.ChimePath != "" {
		if err := exec.CommandContext(ctx, a.PlayerCmd, a.ChimePath).Run(); err != nil {
			a.logger.Warn("chime playback failed", "error", err)
		}
	}

	if a.VoiceCmd != "" {
		if err := exec.CommandContext(ctx, a.VoiceCmd, message).Run(); err != nil {
			a.logger.Warn("tts failed", "error", err)
		}
	}
}
