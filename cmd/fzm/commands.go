package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/modsettings"
	"github.com/fzmanager/fzm/internal/uploads"
)

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print server status, mods and save slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withSession(cmd.Context(), func(_ context.Context, c *client.Client) error {
				printStatus(cmd, c.Snapshot())
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, snap client.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server:   %s", snap.Status)
	if snap.ServerAddress != "" {
		fmt.Fprintf(out, " at %s", snap.ServerAddress)
	}
	fmt.Fprintln(out)
	if len(snap.Versions) > 0 {
		fmt.Fprintf(out, "Versions: %s (latest)\n", snap.Versions[0])
	}

	regions := make([]string, 0, len(snap.Regions))
	for code := range snap.Regions {
		regions = append(regions, code)
	}
	slices.Sort(regions)
	fmt.Fprintf(out, "Regions:  %s\n", strings.Join(regions, ", "))

	fmt.Fprintln(out, "\nSaves:")
	for i := 1; i <= client.NumSlots; i++ {
		if label, ok := snap.Saves[client.SlotName(i)]; ok {
			fmt.Fprintf(out, "  %s\n", label)
		}
	}

	fmt.Fprintln(out, "\nMods:")
	if len(snap.Mods) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, m := range snap.Mods {
		state := "disabled"
		if m.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(out, "  %-4d %-8s %s\n", m.ID, state, m.Text)
	}
}

func newUploadModsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-mods <zip|dir|pattern>...",
		Short: "Upload mod archives",
		Long: "Upload mod archives. A directory uploads every .zip directly inside it; " +
			"patterns such as 'mods/**/*.zip' are expanded. Failed uploads are reported " +
			"and the remaining mods are still uploaded.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := uploads.CollectMods(args)
			if err != nil {
				return err
			}
			return e.withSession(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				return uploadMods(ctx, cmd, c, mods, e.log)
			})
		},
	}
}

func uploadMods(ctx context.Context, cmd *cobra.Command, c *client.Client, mods []client.Mod, log *zap.Logger) error {
	failed := 0
	for i, mod := range mods {
		bar := newProgressLine(cmd.ErrOrStderr(), fmt.Sprintf("[%d/%d] %s", i+1, len(mods), mod.Name), mod.Size)
		err := c.UploadMod(ctx, mod, bar.Update)
		bar.Finish(err)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("mod upload failed", zap.String("mod", mod.Name), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mod uploads failed", failed, len(mods))
	}
	return nil
}

func newUploadSaveCmd(e *env) *cobra.Command {
	var (
		slot  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "upload-save <zip>",
		Short: "Upload a save archive into a save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseSlot(slot)
			if err != nil {
				return err
			}
			save, err := uploads.SaveFile(args[0], name)
			if err != nil {
				return err
			}
			return e.withSession(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				if label := c.Saves()[name]; client.SlotUsed(label) {
					if !force {
						return fmt.Errorf("%s already holds %q; pass --force to replace it", name, label)
					}
					if err := c.DeleteSaveSlot(ctx, name); err != nil {
						return fmt.Errorf("clearing %s: %w", name, err)
					}
					// The upload must not race the deletion's confirming push.
					if err := c.WaitUntilSynced(ctx); err != nil {
						return err
					}
				}

				bar := newProgressLine(cmd.ErrOrStderr(), save.Name+" → "+name, save.Size)
				err := c.UploadSave(ctx, save, bar.Update)
				bar.Finish(err)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "target save slot, 1-9 or slotN")
	cmd.Flags().BoolVar(&force, "force", false, "replace a save already stored in the slot")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

func newDownloadSaveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "download-save <slot> [file]",
		Short: "Download the save stored in a slot",
		Long:  "Download the save stored in a slot. The file defaults to slotN.zip in the current directory.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			target := name + ".zip"
			if len(args) == 2 {
				target = args[1]
			}
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				target = filepath.Join(target, name+".zip")
			}

			return e.withSession(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				label := c.Saves()[name]
				if !client.SlotUsed(label) {
					return fmt.Errorf("%s is empty", name)
				}
				bar := newProgressLine(cmd.ErrOrStderr(), name+" → "+filepath.Base(target), client.SlotSizeHint(label))
				err := c.DownloadSaveSlot(ctx, name, target, bar.Update)
				bar.Finish(err)
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), target)
				}
				return err
			})
		},
	}
}

func newModSettingsCmd(e *env) *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "mod-settings <mods-dir>",
		Short: "Package mod-settings.dat as an uploadable mod",
		Long: "Package the mod-settings.dat of a local Factorio mods directory into " +
			"mod-settings.zip so the hosted server uses the same mod settings.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zipPath, err := modsettings.Build(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s created\n", zipPath)
			if !upload {
				return nil
			}

			mods, err := uploads.CollectMods([]string{zipPath})
			if err != nil {
				return err
			}
			return e.withSession(cmd.Context(), func(ctx context.Context, c *client.Client) error {
				return uploadMods(ctx, cmd, c, mods, e.log)
			})
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the archive after creating it")
	return cmd
}

var errBadSlot = errors.New("slot must be 1-9 or slot1-slot9")

// parseSlot accepts "3" or "slot3" and returns the wire name.
func parseSlot(s string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "slot") {
		name = "slot" + name
	}
	if _, ok := client.SlotIndex(name); !ok {
		return "", fmt.Errorf("%q: %w", s, errBadSlot)
	}
	return name, nil
}
