package common

// PackageName is used as the metrics namespace and default service tag.
const PackageName = "subnet_launcher"

// Version is set at build time via -ldflags.
var Version = "dev"
