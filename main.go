package main

import "github.com/andresmejia3/facefit/cmd"

func main() {
	cmd.Execute()
}
