package config

// Default paths for databases and task files
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./feedimport.db"

	// DefaultTaskFilePath is the task definition file read by task-load
	DefaultTaskFilePath = "./tasks.yaml"
)
