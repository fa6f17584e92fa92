package main

import "dualvision-worker-go/cmd/streamer/commands"

// @title DualVision Streamer API
// @version 1.0
// @description Camera capture, dual detection and MJPEG streaming worker
// @BasePath /
// @schemes http
func main() {
	commands.Execute()
}
