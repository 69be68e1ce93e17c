package model

// Association is the relationship between a comment author and the
// repository, as reported by the platform.
type Association string

const (
	AssociationOwner                Association = "OWNER"
	AssociationMember               Association = "MEMBER"
	AssociationCollaborator         Association = "COLLABORATOR"
	AssociationContributor          Association = "CONTRIBUTOR"
	AssociationFirstTimeContributor Association = "FIRST_TIME_CONTRIBUTOR"
	AssociationFirstTimer           Association = "FIRST_TIMER"
	AssociationNone                 Association = "NONE"
)

// User identifies a platform account together with its repository association.
type User struct {
	Login       string
	Association Association
}

// IsMaintainer reports whether the user may perform privileged commands
// (scoring, pausing, excluding).
func (u User) IsMaintainer() bool {
	switch u.Association {
	case AssociationOwner, AssociationMember, AssociationCollaborator:
		return true
	}
	return false
}
