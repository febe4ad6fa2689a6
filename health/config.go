package health

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/pacboot/resilience/pkg/fs"
)

// Config holds the tunable thresholds the probes check against.
type Config struct {
	ECCThreshold      uint32 `json:"ecc_threshold"`
	MemMinFreeKB      uint32 `json:"mem_min_free_kb"`
	StorageMinFreePct uint8  `json:"storage_min_free_pct"`
	NetworkTimeoutSec uint8  `json:"network_timeout_sec"`
	TempMaxCelsius    uint8  `json:"temp_max_celsius"`
	Verbose           bool   `json:"verbose"`
}

// DefaultConfig returns the thresholds used when no config file overrides
// them.
func DefaultConfig() Config {
	return Config{
		ECCThreshold:      10,
		MemMinFreeKB:      10240,
		StorageMinFreePct: 5,
		NetworkTimeoutSec: 2,
		TempMaxCelsius:    85,
		Verbose:           false,
	}
}

// LoadConfig returns DefaultConfig overlaid with whatever path contains, if
// anything. A missing file is not an error — it means "use the defaults",
// matching the ticket store's config loader's treatment of an absent
// project config file. The file is JSONC (comments and trailing commas
// allowed), standardized to strict JSON with hujson before unmarshaling,
// the same two-step parse the ticket store's config loader uses.
//
// Only fields present in the file override the default; a field absent
// from the JSON keeps its default value, so a config file only needs to
// name the thresholds it wants to change.
func LoadConfig(fsys fs.FS, path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	exists, err := fsys.Exists(path)
	if err != nil {
		return Config{}, fmt.Errorf("health: stat config %q: %w", path, err)
	}

	if !exists {
		return cfg, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("health: read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("health: invalid JSONC in %q: %w", path, err)
	}

	var overlay partialConfig
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Config{}, fmt.Errorf("health: invalid JSON in %q: %w", path, err)
	}

	overlay.applyTo(&cfg)

	return cfg, nil
}

// partialConfig mirrors Config with pointer fields so the JSON decoder can
// tell "absent" apart from "present and zero" — a config file that sets
// storage_min_free_pct to 0 must actually zero the threshold, not be
// indistinguishable from a file that omits the field entirely.
type partialConfig struct {
	ECCThreshold      *uint32 `json:"ecc_threshold"`
	MemMinFreeKB      *uint32 `json:"mem_min_free_kb"`
	StorageMinFreePct *uint8  `json:"storage_min_free_pct"`
	NetworkTimeoutSec *uint8  `json:"network_timeout_sec"`
	TempMaxCelsius    *uint8  `json:"temp_max_celsius"`
	Verbose           *bool   `json:"verbose"`
}

func (p *partialConfig) applyTo(cfg *Config) {
	if p.ECCThreshold != nil {
		cfg.ECCThreshold = *p.ECCThreshold
	}

	if p.MemMinFreeKB != nil {
		cfg.MemMinFreeKB = *p.MemMinFreeKB
	}

	if p.StorageMinFreePct != nil {
		cfg.StorageMinFreePct = *p.StorageMinFreePct
	}

	if p.NetworkTimeoutSec != nil {
		cfg.NetworkTimeoutSec = *p.NetworkTimeoutSec
	}

	if p.TempMaxCelsius != nil {
		cfg.TempMaxCelsius = *p.TempMaxCelsius
	}

	if p.Verbose != nil {
		cfg.Verbose = *p.Verbose
	}
}
