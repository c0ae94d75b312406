package helper

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fyp-lab/mentor/dao"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/handler"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/pkg/alert"
	"github.com/fyp-lab/mentor/pkg/config"
	"github.com/fyp-lab/mentor/pkg/objectstore"
)

// ConfigInitializer 封装配置初始化逻辑
type ConfigInitializer struct {
	backendConfig *config.Config
}

// NewConfigInitializer 创建新的ConfigInitializer实例
func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

// GetBackendConfig 获取后端配置
func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment 加载调试环境变量
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	be := os.Getenv("MENTOR_BE_PORT")
	if be == "" {
		panic("MENTOR_BE_PORT is not set")
	}
	ci.backendConfig.ServerAddr = ":" + be

	return nil
}

// InitializeRegisterConfig 初始化注册配置
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	db := dao.GetDB()
	if err := dao.Migrate(db); err != nil {
		return nil, err
	}

	stores := store.NewGormStores(db)
	alerter := alert.GetAlertMgr()

	return &handler.RegisterConfig{
		Stores:      stores,
		Workflow:    supervision.NewWorkflow(stores, alerter),
		Alerter:     alerter,
		ObjectStore: objectstore.GetClient(),
	}, nil
}
