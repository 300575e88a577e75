package flowfile

import (
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/hetero/internal/log"
)

// Parsed definitions are cached by path and modification time so the watch
// loop's debounced reloads skip redundant parsing when only a touch, not an
// edit, fired the event.
var defCache = gocache.New(5*time.Minute, 10*time.Minute)

// Load reads, parses, and validates the definition at path.
func Load(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("flowfile: stat %s: %w", path, err)
	}

	key := fmt.Sprintf("%s|%d", path, info.ModTime().UnixNano())
	if cached, ok := defCache.Get(key); ok {
		log.Debug(log.CatFile, "definition cache hit", "path", path)
		return cached.(*Definition), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's definition file
	if err != nil {
		return nil, fmt.Errorf("flowfile: read %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, err
	}

	defCache.Set(key, def, gocache.DefaultExpiration)
	log.Info(log.CatFile, "definition loaded", "path", path, "tasks", len(def.Tasks), "edges", len(def.Edges))
	return def, nil
}
