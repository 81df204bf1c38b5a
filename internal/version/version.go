/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package version exposes the application version string. Version is
// overridable at build time via -ldflags "-X refdock/internal/version.Version=...".
package version

import "runtime/debug"

// Version is the semantic version of the current build.
var Version = "0.3.0-dev"

// String returns the version, enriched with the VCS revision when the
// binary was built from a module-aware checkout.
func String() string {
	s := Version
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range info.Settings {
			if kv.Key == "vcs.revision" && len(kv.Value) >= 8 {
				s += "+" + kv.Value[:8]
				break
			}
		}
	}
	return s
}
