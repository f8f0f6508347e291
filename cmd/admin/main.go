// Command admin bootstraps an Admin credential. It reads the same
// configuration as the server, applies pending migrations and prompts for
// the new account's username and password.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/profilekeeper/internal/prompt"
	"github.com/dmitrijs2005/profilekeeper/internal/server"
	"github.com/dmitrijs2005/profilekeeper/internal/server/config"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	p := prompt.New(os.Stdin, os.Stdout, int(os.Stdin.Fd()))

	username, err := p.Text("Enter admin username")
	if err != nil {
		return err
	}
	password, err := p.NewPassword()
	if err != nil {
		return err
	}

	u, err := app.CreateAdmin(ctx, username, password)
	if err != nil {
		return err
	}

	fmt.Printf("Admin %q created (id %s)\n", u.UserName, u.ID)
	return nil
}
