package main

import "github.com/pyae198022/ShopHub/internal/cmd"

func main() {
	cmd.Execute()
}
