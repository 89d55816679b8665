package cli

var (
	Version   = "dev"
	GitCommit = "unknown"
)
