package version

var (
	Version   = "1.0.0" // 发布时更新
	BuildTime string    // -ldflags "-X neoport/internal/pkg/version.BuildTime=..."
	GitCommit string
)

func GetVersion() string {
	return Version
}

// GetFullVersion 带构建信息的版本号
func GetFullVersion() string {
	v := Version
	if GitCommit != "" {
		v += " (" + GitCommit + ")"
	}
	if BuildTime != "" {
		v += " built " + BuildTime
	}
	return v
}
