package config

// WorkspaceConfig holds the root directory under which every session keeps
// its state file, images, videos and final artifact. The root is threaded
// explicitly through store construction; there is no process-wide singleton.
type WorkspaceConfig struct {
	RootDir string
}

func GetWorkspaceConfig() (*WorkspaceConfig, error) {
	return &WorkspaceConfig{
		RootDir: lookupString("WORKSPACE_DIR", "workspace"),
	}, nil
}
