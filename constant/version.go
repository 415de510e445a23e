package constant

var (
	Version = "1.2.0"
	Commit  = ""
)
