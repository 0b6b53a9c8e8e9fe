package main

import (
	"context"
	"os"

	"github.com/Abhishekkr6/teampulse-sub000/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
