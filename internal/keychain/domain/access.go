package domain

// ProjectAccess gathers every wrapped key the server holds that could let one
// principal reach one project's key. Fields are base64 envelope blobs; a nil
// pointer means no wrap exists for that path.
//
// Two paths can unlock a project key:
//   - the direct team-membership path: team key wrapped to the principal's
//     master public key, project key wrapped under the team key
//   - the organization path: organization key wrapped to the principal's
//     master public key (admins/owners only), team key wrapped under the
//     organization key, project key wrapped under the team key
type ProjectAccess struct {
	// EncryptedTeamKey is the team key wrapped to the principal's master
	// public key (direct team membership).
	EncryptedTeamKey *string

	// EncryptedOrgKey is the organization key wrapped to the principal's
	// master public key (org admins/owners only).
	EncryptedOrgKey *string

	// TeamKeyUnderOrg is the team key wrapped symmetrically under the
	// organization key. Always present when the team exists.
	TeamKeyUnderOrg *string

	// EncryptedProjectKey is the project key wrapped symmetrically under the
	// team key.
	EncryptedProjectKey string
}
