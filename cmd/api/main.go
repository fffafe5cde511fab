package main

import (
	_ "github.com/joho/godotenv/autoload"
)

// @title Asset API
// @version 1.0
// @description Upload, list, download and delete digital assets.
// @BasePath /
func main() {
	Execute()
}
