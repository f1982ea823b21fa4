package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"strings"

	"goji.io/pat"
	yml "gopkg.in/yaml.v2"

	"github.com/tomlinsa/andorview/camera"
)

// presets are named configurations stored as YAML files under PresetDir,
// one file per name.  Applying a preset reconfigures the camera, which
// fails while a session is running.

func (v *Viewer) presetPath(name string) (string, bool) {
	if v.PresetDir == "" || name == "" {
		return "", false
	}
	// keep names to a single path element
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", false
	}
	return path.Join(v.PresetDir, name+".yaml"), true
}

// HTTPPresetList serves the names of the stored presets as a JSON array
func (v *Viewer) HTTPPresetList(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if v.PresetDir != "" {
		entries, err := os.ReadDir(v.PresetDir)
		if err != nil && !os.IsNotExist(err) {
			httpError(w, err)
			return
		}
		for _, e := range entries {
			fn := e.Name()
			if e.IsDir() || !strings.HasSuffix(fn, ".yaml") {
				continue
			}
			names = append(names, strings.TrimSuffix(fn, ".yaml"))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		httpError(w, err)
	}
}

// HTTPPresetGet serves a stored preset as JSON
func (v *Viewer) HTTPPresetGet(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	fn, ok := v.presetPath(name)
	if !ok {
		http.Error(w, "bad preset name", http.StatusBadRequest)
		return
	}
	buf, err := os.ReadFile(fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var cfg camera.Config
	if err := yml.Unmarshal(buf, &cfg); err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		httpError(w, err)
	}
}

// HTTPPresetSave stores the live configuration under the given name
func (v *Viewer) HTTPPresetSave(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	fn, ok := v.presetPath(name)
	if !ok {
		http.Error(w, "bad preset name", http.StatusBadRequest)
		return
	}
	if err := os.MkdirAll(v.PresetDir, 0777); err != nil {
		httpError(w, err)
		return
	}
	buf, err := yml.Marshal(v.cam.Config())
	if err != nil {
		httpError(w, err)
		return
	}
	if err := os.WriteFile(fn, buf, 0666); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPPresetLoad applies a stored preset to the camera.  Fails with 409
// while a session is running and 400 when the preset no longer validates
// against the connected camera.
func (v *Viewer) HTTPPresetLoad(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	fn, ok := v.presetPath(name)
	if !ok {
		http.Error(w, "bad preset name", http.StatusBadRequest)
		return
	}
	buf, err := os.ReadFile(fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var cfg camera.Config
	if err := yml.Unmarshal(buf, &cfg); err != nil {
		httpError(w, err)
		return
	}
	if err := v.cam.Configure(cfg); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
