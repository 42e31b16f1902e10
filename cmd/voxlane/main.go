package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/logger"
	"github.com/voxlane/voxlane/internal/migration"
	"github.com/voxlane/voxlane/internal/server"
	"github.com/voxlane/voxlane/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the shared ID generator. NODE_ID distinguishes
// replicas so concurrently generated IDs never collide.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
