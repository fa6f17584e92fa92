package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	// Stream
	s.router.GET("/video_feed", s.videoHandler.VideoFeed)
	s.router.GET("/snapshot", s.videoHandler.Snapshot)

	// Camera control
	s.router.POST("/start_camera", s.cameraHandler.StartCamera)
	s.router.POST("/stop_camera", s.cameraHandler.StopCamera)
	s.router.POST("/switch_camera", s.cameraHandler.SwitchCamera)
	s.router.GET("/status", s.cameraHandler.GetStatus)
	s.router.GET("/detect_cameras", s.cameraHandler.DetectCameras)
	s.router.GET("/test_camera/:index", s.cameraHandler.TestCamera)

	// Settings
	s.router.GET("/settings", s.settingsHandler.GetSettings)
	s.router.GET("/get_settings", s.settingsHandler.GetSettings)
	s.router.POST("/update_settings", s.settingsHandler.UpdateSettings)
	s.router.POST("/update_detection_settings", s.settingsHandler.UpdateDetectionSettings)
	s.router.POST("/reset_settings", s.settingsHandler.ResetSettings)
	s.router.GET("/reset_settings", s.settingsHandler.ResetSettings)

	s.router.GET("/ws/events", s.eventsHandler.Subscribe)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}

	worker := s.router.Group("/worker")
	{
		worker.GET("/info", s.workerHandler.GetInfo)
		worker.POST("/shutdown", s.workerHandler.Shutdown)
	}
}
