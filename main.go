package main

import "github.com/vibast-solutions/ms-go-lesson-payments/cmd"

func main() {
	cmd.Execute()
}
