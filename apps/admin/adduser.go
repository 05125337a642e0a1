package main

import (
	"context"
	"time"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

// addUser updates or creates an active account and points it at roleName.
// The role assignment goes through the role service so the store can
// arbitrate the sole super admin rule.
func (cli *commandLine) addUser(name, email, roleName, pwd string) error {
	var usr user.User
	var err error
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.UpdatedAt = time.Now().UTC()
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return err
		}
	} else if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}

	if roleName != "" {
		if _, err := cli.roleSvc.AssignToUser(ctx, usr.ID, role.NormalizeName(roleName)); err != nil {
			return err
		}
	}
	return nil
}
