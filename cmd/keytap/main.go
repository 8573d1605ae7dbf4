package main

import (
	"os"

	"golang.design/x/mainthread"

	"github.com/offlinefirst/keytap/internal/cmd"
)

func main() {
	code := 0
	mainthread.Init(func() {
		root := cmd.NewRootCommand(cmd.WithMainThread(mainthread.Call))
		if err := root.Execute(os.Args[1:]); err != nil {
			code = 1
		}
	})
	os.Exit(code)
}
