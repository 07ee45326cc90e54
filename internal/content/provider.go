// Package content loads the sports feeds written by the data-refresh job.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names produced by the refresh job.
const (
	LastGamesFile   = "last_games_score.json"
	StandingsFile   = "standing.json"
	FutureGamesFile = "future_games.json"
)

// ErrNoData is returned when a feed file does not exist yet.
var ErrNoData = errors.New("content: no data")

// Standings is the ranked team list of each conference, best first.
type Standings struct {
	East []string `json:"East"`
	West []string `json:"West"`
}

// Provider reads feeds from a directory.
type Provider struct {
	Dir string
}

func New(dir string) *Provider {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Provider{Dir: dir}
}

// LastGames returns last night's results, one record per game.
func (p *Provider) LastGames() ([]string, error) {
	var games []string
	if err := p.read(LastGamesFile, &games); err != nil {
		return nil, err
	}
	return clean(games), nil
}

// Standings returns the current conference rankings.
func (p *Provider) Standings() (Standings, error) {
	var st Standings
	if err := p.read(StandingsFile, &st); err != nil {
		return Standings{}, err
	}
	st.East = clean(st.East)
	st.West = clean(st.West)
	return st, nil
}

// FutureGames returns tonight's schedule, one line per game.
func (p *Provider) FutureGames() ([]string, error) {
	var games []string
	if err := p.read(FutureGamesFile, &games); err != nil {
		return nil, err
	}
	return clean(games), nil
}

func (p *Provider) read(name string, v any) error {
	path := filepath.Join(p.Dir, name)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoData, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// clean drops blank entries and normalizes line endings.
func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
