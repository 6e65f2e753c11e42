package storage

// AddMember exposes the raw membership insert to the external tests.
var AddMember = (*Service).addMember
