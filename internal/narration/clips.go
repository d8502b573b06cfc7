package narration

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"slices"
	"strings"
)

var clipTypes = []struct {
	ext         string
	contentType string
	aliases     []string
}{
	{".mp3", "audio/mpeg", []string{"audio/mp3", "audio/mpeg3"}},
	{".ogg", "audio/ogg", []string{"audio/vorbis", "application/ogg"}},
	{".wav", "audio/wav", []string{"audio/x-wav", "audio/wave", "audio/vnd.wave"}},
}

// ClipExt picks the clip file extension for a content type. An empty type is mp3.
func ClipExt(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return clipTypes[0].ext, nil
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	for _, t := range clipTypes {
		if ct == t.contentType || slices.Contains(t.aliases, ct) {
			return t.ext, nil
		}
	}
	return "", fmt.Errorf("unsupported clip type %q", contentType)
}

// ClipName is the file stem a step's recording is stored under.
func ClipName(stepID int) string { return fmt.Sprintf("step-%d", stepID) }

// FSClips loads step-<id>.{mp3,ogg,wav} from a file system.
type FSClips struct {
	FS fs.FS
}

// DirClips reads clips from a directory on disk.
func DirClips(dir string) FSClips { return FSClips{FS: os.DirFS(dir)} }

func (c FSClips) Load(stepID int) (Audio, error) {
	if c.FS == nil {
		return Audio{}, ErrNoClip
	}
	for _, t := range clipTypes {
		name := path.Clean(ClipName(stepID) + t.ext)
		data, err := fs.ReadFile(c.FS, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Audio{}, fmt.Errorf("read clip %s: %w", name, err)
		}
		return Audio{Data: data, ContentType: t.contentType}, nil
	}
	return Audio{}, fmt.Errorf("%w for step %d", ErrNoClip, stepID)
}
