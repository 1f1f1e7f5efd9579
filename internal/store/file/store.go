// Package file reads user profiles from a JSON document. It backs local runs
// and demos where no database is available.
//
// The document is either an array of profiles or an object keyed by profile
// ID, the shape of an exported document collection. It is re-read on every
// call so edits are picked up by the next invocation. A record that does not
// decode as a profile is logged and dropped; the rest are still returned.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

type Store struct {
	fs   afero.Fs
	path string
	log  zerolog.Logger
}

func New(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path, log: logging.New("store.file")}
}

func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return s.decode(data)
}

// PingContext reports whether the profiles file is readable.
func (s *Store) PingContext(ctx context.Context) error {
	if _, err := s.fs.Stat(s.path); err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) decode(data []byte) ([]domain.Profile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode profile list: %w", err)
		}
		out := make([]domain.Profile, 0, len(records))
		for i, raw := range records {
			var p domain.Profile
			if err := json.Unmarshal(raw, &p); err != nil {
				s.log.Warn().Err(err).Int("index", i).Msg("skipping malformed profile")
				continue
			}
			out = append(out, p)
		}
		return out, nil
	}

	var byID map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, fmt.Errorf("decode profile map: %w", err)
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Profile, 0, len(ids))
	for _, id := range ids {
		var p domain.Profile
		if err := json.Unmarshal(byID[id], &p); err != nil {
			s.log.Warn().Err(err).Str("profile", id).Msg("skipping malformed profile")
			continue
		}
		if p.ID == "" {
			p.ID = id
		}
		out = append(out, p)
	}
	return out, nil
}
