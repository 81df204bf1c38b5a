/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package share publishes folder snapshots to an optional companion
// server so a set of references can be handed to someone else. The
// desktop app only uses the client half; the server half backs the
// `refdock serve` subcommand.
package share

import (
	"github.com/zalando/go-keyring"
)

// Service/key for the OS keyring.
const (
	keyringService = "RefDock"
	keyringToken   = "share_token"
)

// Seams over the OS keyring so tests never touch real credentials.
var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// StoredToken returns the share token from the OS keyring, or "" when
// none is stored.
func StoredToken() string {
	tok, err := keyringGet(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return tok
}

// StoreToken persists the share token in the OS keyring.
func StoreToken(token string) error {
	return keyringSet(keyringService, keyringToken, token)
}

// ClearToken removes the stored share token. Missing entries are not an
// error.
func ClearToken() error {
	if err := keyringDelete(keyringService, keyringToken); err != nil && err != keyring.ErrNotFound {
		return err
	}
	return nil
}
