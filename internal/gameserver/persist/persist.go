// Package persist reads and writes the on-disk save layout (spec.md §4.9,
// §6.5): characters under saves/characters/{save_id}.json, world templates
// under saves/worlds/{name}.world, and world run-time state under
// saves/worlds/{name}.state.json.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
)

const (
	charactersSubdir = "characters"
	worldsSubdir     = "worlds"
)

// Store roots the save layout at a base directory, the same
// constructor-injected-root pattern the builtin file tools use instead of
// hardcoding a path.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root/saves.
func NewStore(root string) *Store {
	return &Store{root: filepath.Join(root, "saves")}
}

func (s *Store) charactersDir() string { return filepath.Join(s.root, charactersSubdir) }
func (s *Store) worldsDir() string     { return filepath.Join(s.root, worldsSubdir) }

func (s *Store) characterPath(saveID string) string {
	return filepath.Join(s.charactersDir(), saveID+".json")
}

func (s *Store) worldTemplatePath(name string) string {
	return filepath.Join(s.worldsDir(), name+".world")
}

func (s *Store) worldStatePath(name string) string {
	return filepath.Join(s.worldsDir(), name+".state.json")
}

// characterDoc is Character's on-disk shape: DiscoveredCells is a set in
// memory but spec.md §4.9 requires set-typed fields serialize as arrays of
// tuples. The explicit field here shadows the embedded, unexported-to-JSON
// one so json.Marshal/Unmarshal sees the array form exclusively.
type characterDoc struct {
	world.Character
	DiscoveredCells [][2]int `json:"discovered_cells"`
}

// SaveCharacter writes c to saves/characters/{save_id}.json, replacing any
// existing file atomically via write-then-rename.
func (s *Store) SaveCharacter(c *world.Character) error {
	if err := os.MkdirAll(s.charactersDir(), 0755); err != nil {
		return fmt.Errorf("persist: create characters dir: %w", err)
	}
	doc := characterDoc{Character: *c, DiscoveredCells: setToSlice(c.DiscoveredCells)}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal character %s: %w", c.SaveID, err)
	}
	return writeFileAtomic(s.characterPath(c.SaveID), data)
}

// LoadCharacter reads saves/characters/{save_id}.json. The returned error
// satisfies os.IsNotExist when the save doesn't exist.
func (s *Store) LoadCharacter(saveID string) (*world.Character, error) {
	data, err := os.ReadFile(s.characterPath(saveID))
	if err != nil {
		return nil, err
	}
	var doc characterDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persist: parse character %s: %w", saveID, err)
	}
	c := doc.Character
	c.DiscoveredCells = sliceToSet(doc.DiscoveredCells)
	return &c, nil
}

// worldDoc mirrors characterDoc's shadowing trick; World has no set-typed
// field today but the hook is here so a future one follows the same rule.
type worldDoc struct {
	world.State
}

// SaveWorldTemplate writes st to saves/worlds/{name}.world. Templates are
// read-only in practice (spec.md §6.5) but nothing prevents overwriting one
// deliberately, e.g. when regenerating a world by hand.
func (s *Store) SaveWorldTemplate(st *world.State) error {
	return s.saveWorldDoc(s.worldTemplatePath(st.WorldName), st)
}

// LoadWorldTemplate reads saves/worlds/{name}.world.
func (s *Store) LoadWorldTemplate(name string) (*world.State, error) {
	return s.loadWorldDoc(s.worldTemplatePath(name))
}

// SaveWorldState writes st to saves/worlds/{name}.state.json, the
// authoritative run-time snapshot.
func (s *Store) SaveWorldState(st *world.State) error {
	return s.saveWorldDoc(s.worldStatePath(st.WorldName), st)
}

// LoadWorldState reads saves/worlds/{name}.state.json.
func (s *Store) LoadWorldState(name string) (*world.State, error) {
	return s.loadWorldDoc(s.worldStatePath(name))
}

func (s *Store) saveWorldDoc(path string, st *world.State) error {
	if err := os.MkdirAll(s.worldsDir(), 0755); err != nil {
		return fmt.Errorf("persist: create worlds dir: %w", err)
	}
	data, err := json.MarshalIndent(worldDoc{State: *st}, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal world %s: %w", st.WorldName, err)
	}
	return writeFileAtomic(path, data)
}

func (s *Store) loadWorldDoc(path string) (*world.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc worldDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persist: parse world file %s: %w", path, err)
	}
	st := doc.State
	return &st, nil
}

// LoadOrGenerate implements spec.md §4.9's startup fallback chain: try the
// state file, then the template, then generate a fresh world and save it as
// the template. generate is called at most once and only on a double miss.
func (s *Store) LoadOrGenerate(name string, generate func() (*world.State, error)) (*world.State, error) {
	if st, err := s.LoadWorldState(name); err == nil {
		return st, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if st, err := s.LoadWorldTemplate(name); err == nil {
		return st, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	st, err := generate()
	if err != nil {
		return nil, fmt.Errorf("persist: generate world %s: %w", name, err)
	}
	if err := s.SaveWorldTemplate(st); err != nil {
		return nil, err
	}
	return st, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: finalize %s: %w", path, err)
	}
	return nil
}

func setToSlice(set map[[2]int]struct{}) [][2]int {
	out := make([][2]int, 0, len(set))
	for cell := range set {
		out = append(out, cell)
	}
	return out
}

func sliceToSet(cells [][2]int) map[[2]int]struct{} {
	set := make(map[[2]int]struct{}, len(cells))
	for _, cell := range cells {
		set[cell] = struct{}{}
	}
	return set
}
