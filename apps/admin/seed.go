package main

import "context"

func (cli *commandLine) seed() error {
	return cli.roleSvc.Seed(context.Background())
}
