// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package comtrade

import "errors"

var (
	// ErrInvalidArgument is returned when a value is outside the set the
	// format allows. State is left unchanged.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedRecord is returned when a sample record does not carry
	// exactly one value per registered channel.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrFinalized is returned when a writer is used after Finalize.
	ErrFinalized = errors.New("writer already finalized")
)
