package campaign

// Role names consulted by RoleAuthority.
const (
	RoleRejecter = "campaign/rejecter"
	RoleApprover = "campaign/approver"
	RoleRewarder = "campaign/rewarder"
)

// Origin identifies who dispatched a call. The zero value is an unsigned
// origin that passes no check.
type Origin struct {
	caller [20]byte
	signed bool
	root   bool
}

// Signed returns the origin of a call signed by addr.
func Signed(addr [20]byte) Origin {
	return Origin{caller: addr, signed: true}
}

// RootOrigin returns the privileged origin that passes every authority check.
func RootOrigin() Origin {
	return Origin{root: true}
}

// Signer returns the signing account, if any.
func (o Origin) Signer() ([20]byte, bool) {
	return o.caller, o.signed
}

func (o Origin) IsRoot() bool { return o.root }

// IsSigner reports whether the origin is signed by addr.
func (o Origin) IsSigner(addr [20]byte) bool {
	return o.signed && o.caller == addr
}

// Authority classifies an origin for the privileged campaign operations.
type Authority interface {
	IsRejectAuthority(Origin) bool
	IsApprovalAuthority(Origin) bool
	IsRewardAuthority(Origin) bool
}

// RootAuthority admits only the root origin.
type RootAuthority struct{}

func (RootAuthority) IsRejectAuthority(o Origin) bool   { return o.root }
func (RootAuthority) IsApprovalAuthority(o Origin) bool { return o.root }
func (RootAuthority) IsRewardAuthority(o Origin) bool   { return o.root }

type roleState interface {
	HasRole(role string, addr []byte) bool
}

// RoleAuthority admits root plus signed origins holding the matching role in
// state.
type RoleAuthority struct {
	state roleState
}

// NewRoleAuthority builds an authority backed by role assignments in st.
func NewRoleAuthority(st roleState) RoleAuthority {
	return RoleAuthority{state: st}
}

func (a RoleAuthority) has(role string, o Origin) bool {
	if o.root {
		return true
	}
	if !o.signed || a.state == nil {
		return false
	}
	return a.state.HasRole(role, o.caller[:])
}

func (a RoleAuthority) IsRejectAuthority(o Origin) bool   { return a.has(RoleRejecter, o) }
func (a RoleAuthority) IsApprovalAuthority(o Origin) bool { return a.has(RoleApprover, o) }
func (a RoleAuthority) IsRewardAuthority(o Origin) bool   { return a.has(RoleRewarder, o) }
