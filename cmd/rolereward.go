package cmd

import (
	"context"
	"strconv"

	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/spf13/cobra"
)

var roleRewardCmd = &cobra.Command{
	Use:   "rolereward",
	Short: "Manage level role rewards",
}

var roleRewardSetCmd = &cobra.Command{
	Use:   "set GUILD_ID LEVEL ROLE_ID",
	Short: "Grant ROLE_ID when members of GUILD_ID reach LEVEL",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			if err := s.Progression.SetRoleReward(ctx, args[0], level, args[2]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "level %d -> %s\n", level, args[2])
			return nil
		})
	},
}

var roleRewardRemoveCmd = &cobra.Command{
	Use:   "remove GUILD_ID LEVEL",
	Short: "Remove the role reward for LEVEL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			if err := s.Progression.RemoveRoleReward(ctx, args[0], level); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "removed level %d\n", level)
			return nil
		})
	},
}

var roleRewardListCmd = &cobra.Command{
	Use:   "list GUILD_ID",
	Short: "List the role rewards of a guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			rewards, err := s.Progression.RoleRewards(ctx, args[0])
			if err != nil {
				return err
			}
			for _, r := range rewards {
				printf(cmd.OutOrStdout(), "%d\t%s\n", r.Level, r.RoleID)
			}
			return nil
		})
	},
}

func init() {
	roleRewardCmd.AddCommand(roleRewardSetCmd, roleRewardRemoveCmd, roleRewardListCmd)
	rootCmd.AddCommand(roleRewardCmd)
}
