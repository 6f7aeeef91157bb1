// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

package transactions

import (
	"github.com/algorand-devrel/beaker-go/data/basics"
)

// OnCompletion is an enum representing some layer 1 side effect that an
// ApplicationCall transaction will have if it is included in a block.
type OnCompletion uint64

const (
	// NoOpOC indicates that an application transaction will simply call its
	// ApprovalProgram
	NoOpOC OnCompletion = 0

	// OptInOC indicates that an application transaction will allocate some
	// LocalState for the application in the sender's account
	OptInOC OnCompletion = 1

	// CloseOutOC indicates that an application transaction will deallocate
	// some LocalState for the application from the user's account
	CloseOutOC OnCompletion = 2

	// ClearStateOC is similar to CloseOutOC, but may never fail. This
	// allows users to reclaim their minimum balance from an application
	// they no longer wish to opt in to. When a transaction's
	// OnCompletion is ClearStateOC, the ClearStateProgram executes
	// instead of the ApprovalProgram
	ClearStateOC OnCompletion = 3

	// UpdateApplicationOC indicates that an application transaction will
	// update the ApprovalProgram and ClearStateProgram for the application
	UpdateApplicationOC OnCompletion = 4

	// DeleteApplicationOC indicates that an application transaction will
	// delete the AppParams for the application from the creator's balance
	// record
	DeleteApplicationOC OnCompletion = 5
)

// String returns the on-completion kind the way algod spells it.
func (oc OnCompletion) String() string {
	switch oc {
	case NoOpOC:
		return "noop"
	case OptInOC:
		return "optin"
	case CloseOutOC:
		return "closeout"
	case ClearStateOC:
		return "clearstate"
	case UpdateApplicationOC:
		return "update"
	case DeleteApplicationOC:
		return "delete"
	}
	return "?"
}

// ApplicationCallTxnFields captures the transaction fields used for all
// interactions with applications
type ApplicationCallTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// ApplicationID is 0 when creating an application, and nonzero when
	// calling an existing application.
	ApplicationID basics.AppIndex `codec:"apid"`

	// OnCompletion specifies an optional side-effect that this transaction
	// will have on the balance record of the sender or the application's
	// creator. See the documentation for the OnCompletion type for more
	// information on each possible value.
	OnCompletion OnCompletion `codec:"apan"`

	// ApplicationArgs are arguments accessible to the executing
	// ApprovalProgram or ClearStateProgram.
	ApplicationArgs [][]byte `codec:"apaa"`

	// Accounts are accounts whose balance records are accessible by the
	// executing program.
	Accounts []basics.Address `codec:"apat"`

	// ForeignApps are application IDs for applications besides this one
	// whose global states are accessible by the executing program.
	ForeignApps []basics.AppIndex `codec:"apfa"`

	// Boxes are the boxes that can be accessed by this transaction (and
	// others in the same group).
	Boxes []BoxRef `codec:"apbx"`

	// ForeignAssets are asset IDs for assets whose parameters are
	// accessible by the executing program.
	ForeignAssets []basics.AssetIndex `codec:"apas"`

	// LocalStateSchema specifies the maximum number of each type that may be
	// stored in an account's LocalState for this application. Only used on
	// application create.
	LocalStateSchema basics.StateSchema `codec:"apls"`

	// GlobalStateSchema specifies the maximum number of each type that may be
	// stored in the application's GlobalState. Only used on application
	// create.
	GlobalStateSchema basics.StateSchema `codec:"apgs"`

	// ApprovalProgram is the stateful TEAL program that executes on all
	// ApplicationCall transactions associated with this application,
	// except for those where OnCompletion is equal to ClearStateOC.
	ApprovalProgram []byte `codec:"apap"`

	// ClearStateProgram executes when an ApplicationCall transaction's
	// OnCompletion is equal to ClearStateOC.
	ClearStateProgram []byte `codec:"apsu"`

	// ExtraProgramPages specifies the additional app program size requested
	// in pages. A page is 1024 bytes.
	ExtraProgramPages uint32 `codec:"apep"`
}

// BoxRef names a box by the app it belongs to and the name it uses.
type BoxRef struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Index uint64 `codec:"i"`
	Name  []byte `codec:"n"`
}

// Empty indicates whether or not all the fields in the
// ApplicationCallTxnFields are zeroed out
func (ac *ApplicationCallTxnFields) Empty() bool {
	if ac.ApplicationID != 0 {
		return false
	}
	if ac.OnCompletion != 0 {
		return false
	}
	if ac.ApplicationArgs != nil {
		return false
	}
	if ac.Accounts != nil {
		return false
	}
	if ac.ForeignApps != nil {
		return false
	}
	if ac.ForeignAssets != nil {
		return false
	}
	if ac.Boxes != nil {
		return false
	}
	if ac.LocalStateSchema != (basics.StateSchema{}) {
		return false
	}
	if ac.GlobalStateSchema != (basics.StateSchema{}) {
		return false
	}
	if ac.ApprovalProgram != nil {
		return false
	}
	if ac.ClearStateProgram != nil {
		return false
	}
	if ac.ExtraProgramPages != 0 {
		return false
	}
	return true
}
