package enroll

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// State records what has already landed so reruns can report it. Entries
// are keyed by the enrolling wallet; submissions by track.
type State struct {
	Users map[string]*UserState `json:"users"`
}

type UserState struct {
	Account       string                 `json:"account"`
	Initialized   bool                   `json:"initialized"`
	InitSignature string                 `json:"init_signature,omitempty"` // empty when found already initialized
	Tracks        map[string]*TrackState `json:"tracks,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type TrackState struct {
	Completed       bool      `json:"completed"`
	Mint            string    `json:"mint,omitempty"` // set only by the run that minted
	SubmitSignature string    `json:"submit_signature,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// User returns the entry for user, creating it when missing.
func (s *State) User(user string) *UserState {
	if s.Users == nil {
		s.Users = map[string]*UserState{}
	}
	u, ok := s.Users[user]
	if !ok {
		u = &UserState{}
		s.Users[user] = u
	}
	return u
}

// Track returns the entry for track, creating it when missing.
func (u *UserState) Track(track Track) *TrackState {
	if u.Tracks == nil {
		u.Tracks = map[string]*TrackState{}
	}
	t, ok := u.Tracks[string(track)]
	if !ok {
		t = &TrackState{}
		u.Tracks[string(track)] = t
	}
	return t
}

// LoadState returns an empty state when the file does not exist yet.
func LoadState(path string) (State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var s State
	return s, json.Unmarshal(b, &s)
}

func SaveState(path string, s State) error {
	b, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
