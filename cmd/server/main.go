// @title        Chat Stream API
// @version      1.0
// @description  Chat backend that stores conversations per session and streams assistant replies over Server-Sent Events.
// @host         localhost:8000
// @BasePath     /
package main

import (
	"os"

	"chat-stream/backend/internal/app"
)

func main() {
	os.Exit(app.Run())
}
