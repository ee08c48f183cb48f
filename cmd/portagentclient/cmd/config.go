/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/facebook/portagent/config"
)

// loadEffectiveConfig loads config from rootConfigFlag (YAML or INI,
// chosen by extension) if set, then applies any --host/--data-port/
// --command-port overrides from the command line.
func loadEffectiveConfig() (config.Config, error) {
	var cfg config.Config
	if rootConfigFlag != "" {
		loaded, err := loadConfigFile(rootConfigFlag)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}
	if rootHostFlag != "" {
		cfg.Host = rootHostFlag
	}
	if rootDataPort != 0 {
		cfg.DataPort = rootDataPort
	}
	if rootCommandPort != 0 {
		cfg.CommandPort = rootCommandPort
	}
	return cfg, nil
}

func loadConfigFile(path string) (*config.Config, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return config.Load(path)
	case ".ini":
		return config.LoadINI(path)
	default:
		return nil, fmt.Errorf("unrecognized config extension %q (want .yaml or .ini)", ext)
	}
}
