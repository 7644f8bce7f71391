package main

import "campus/internal/app/server"

func main() {
	server.Run()
}
