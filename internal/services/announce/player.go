package announce

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"cafe-pos/internal/logger"
)

// Player plays an audio URL and returns when playback ends.
type Player interface {
	Play(ctx context.Context, url string) error
}

// CommandPlayer runs an external player. The template is split on spaces and
// "{url}" is replaced in each argument, e.g. "mpg123 -q {url}".
type CommandPlayer struct {
	args []string
}

func NewCommandPlayer(template string) (*CommandPlayer, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	if !strings.Contains(template, "{url}") {
		return nil, fmt.Errorf("player command %q has no {url} placeholder", template)
	}
	return &CommandPlayer{args: args}, nil
}

func (p *CommandPlayer) command(url string) []string {
	out := make([]string, len(p.args))
	for i, a := range p.args {
		out[i] = strings.ReplaceAll(a, "{url}", url)
	}
	return out
}

func (p *CommandPlayer) Play(ctx context.Context, url string) error {
	argv := p.command(url)
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LogPlayer only logs what would be played.
type LogPlayer struct {
	Logger *logger.Logger
}

func (p LogPlayer) Play(ctx context.Context, url string) error {
	p.Logger.Info("audio_played", "Announcement audio ready", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"audio_url": url,
	})
	return nil
}
