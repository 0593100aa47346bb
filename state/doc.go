// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the persisted ledger keyspace.
// It follows the flow as below:
//
//	          o
//	          |
//	 [ revertable state ]
//	          |
//	   [ stacked map ] -> [ journal ] -> [ batched write ] -> [ store ]
//	          |
//	    [ slot cache ]
//	          |
//	      [ store ]
//
// Slots holding empty values are treated as deleted, so a slot written
// back to its zero value leaves no trace in the store.
package state
