package consts

// Permissions for files and directories fetcharr might create.
const (
	PermsGenericDir  = 0o755
	PermsHomeProgDir = 0o755
)
