package narration

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
)

// CommandSpeaker speaks through a local text-to-speech command such as espeak or say.
type CommandSpeaker struct {
	Name string
	Args []string
}

// LocalSpeaker picks the platform's speech command. It returns nil when none is installed.
func LocalSpeaker() *CommandSpeaker {
	candidates := []CommandSpeaker{{Name: "espeak-ng"}, {Name: "espeak"}, {Name: "spd-say", Args: []string{"--wait"}}}
	if runtime.GOOS == "darwin" {
		candidates = []CommandSpeaker{{Name: "say"}}
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.Name); err == nil {
			return &c
		}
	}
	return nil
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string, onStart func(), onEnd func(error)) (Track, error) {
	ctx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Name, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	onStart()
	go func() {
		err := cmd.Wait()
		if errors.Is(ctx.Err(), context.Canceled) {
			err = nil
		}
		cancel()
		onEnd(err)
	}()
	return cancelTrack(cancel), nil
}

type cancelTrack context.CancelFunc

func (t cancelTrack) Stop() { t() }
