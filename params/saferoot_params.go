// Copyright 2024 The gtos Authors
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package params

import (
	"github.com/ethereum/go-ethereum/common"
)

// Saferoot system addresses: fixed, well-known addresses used by the protocol.
var (
	// SystemActionAddress is the sentinel To-address for system action messages.
	// Messages sent to this address carry a JSON-encoded SysAction in Data
	// and are executed by the ledger without an interpreter.
	SystemActionAddress = common.HexToAddress("0x0000000000000000000000000000000053524631") // "SRF1"

	// SaferootFactoryAddress hosts the factory. Clones are derived from its
	// address and nonce.
	SaferootFactoryAddress = common.HexToAddress("0x0000000000000000000000000000000053524632") // "SRF2"

	// SaferootImplementationAddress is the canonical implementation every
	// clone delegates to. Integrators compare a clone's target against it.
	SaferootImplementationAddress = common.HexToAddress("0x0000000000000000000000000000000053524633") // "SRF3"
)

// SysActionGas is the fixed gas cost charged for any system action message.
const SysActionGas uint64 = 100_000

// SafeguardItemGas is charged per entry or key processed by SAFEGUARD_ADD,
// SAFEGUARD_INITIATE and SAFEROOT_CREATE_WITH_SAFEGUARDS.
const SafeguardItemGas uint64 = 20_000
