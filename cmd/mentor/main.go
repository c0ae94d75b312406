package main

import (
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/cmd/mentor/helper"
	"github.com/fyp-lab/mentor/pkg/cronjob"
)

// @title						Mentor API
// @version						1.0.0
// @description					This is the API server for Mentor, a final-year-project supervision platform.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					访问 /v1/login 并获取 TOKEN 后，填入 'Bearer ${TOKEN}' 以访问受保护的接口
func main() {
	// Initialize configuration
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	// Load debug environment if needed
	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	// Initialize register config and dependencies
	registerConfig, err := configInit.InitializeRegisterConfig()
	if err != nil {
		klog.Fatalf("Failed to register config: %s\n", err)
	}

	// Start the deadline reminder scheduler
	reminder := cronjob.NewCronJobManager(
		registerConfig.Stores,
		registerConfig.Alerter,
		backendConfig.Reminder.Spec,
		backendConfig.Reminder.WindowDays,
	)
	if err := reminder.Start(); err != nil {
		klog.Fatalf("Failed to start reminder: %s", err)
	}
	defer reminder.Stop()

	// Start HTTP server
	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.StartServer(registerConfig)
}
