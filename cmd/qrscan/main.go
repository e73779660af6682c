package main

import "github.com/recibo-tech/qrscan/cmd/qrscan/cmd"

func main() {
	cmd.Execute()
}
