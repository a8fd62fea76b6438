// Command fs5600ctl is a small operator tool for fs5600 images: formatting a
// fresh image, checking an existing one for invariant violations, and
// poking around a mounted image from an interactive shell.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	terrafs "github.com/adig2208/TerraFS"
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/format"
	"github.com/adig2208/TerraFS/internal/fsck"
	"github.com/adig2208/TerraFS/internal/manifest"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

var (
	verbose bool
	log     = logrus.New()
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	root := &cobra.Command{
		Use:   "fs5600ctl",
		Short: "Format, check, and inspect fs5600 disk images",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newFormatCommand(), newFsckCommand(), newShellCommand())

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newFormatCommand() *cobra.Command {
	var blocks, inodes uint32
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "format <image>",
		Short: "Create a fresh, empty fs5600 image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]

			f, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if err := f.Truncate(int64(blocks) * ondisk.BlockSize); err != nil {
				f.Close()
				return err
			}
			f.Close()

			dev, err := blockdev.NewFileDevice(imagePath)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{"blocks": blocks, "inodes": inodes}).Debug("formatting image")
			if err := format.Format(dev, format.Options{TotalBlocks: blocks, InodeCount: inodes}); err != nil {
				return err
			}

			if manifestPath != "" {
				entries, err := manifest.Load(manifestPath)
				if err != nil {
					return fmt.Errorf("loading manifest: %w", err)
				}
				fs, err := terrafs.Init(dev)
				if err != nil {
					return err
				}
				log.WithField("entries", len(entries)).Debug("applying manifest")
				if err := manifest.Apply(fs, entries); err != nil {
					return fmt.Errorf("applying manifest: %w", err)
				}
			}

			fmt.Printf("formatted %s: %d blocks, %d inodes\n", imagePath, blocks, inodes)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&blocks, "blocks", 400, "total number of blocks in the image")
	cmd.Flags().Uint32Var(&inodes, "inodes", 128, "number of inode slots in the image")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "optional CSV manifest of initial contents")
	return cmd
}

func newFsckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck <image>",
		Short: "Check an image's bitmap, inode table, and directories for consistency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := blockdev.NewFileDevice(args[0])
			if err != nil {
				return err
			}
			if err := fsck.Check(dev); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println("clean")
			return nil
		},
	}
}

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <image>",
		Short: "Interactively inspect a mounted image (ls, cat, stat, quit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := blockdev.NewFileDevice(args[0])
			if err != nil {
				return err
			}
			fs, err := terrafs.Init(dev)
			if err != nil {
				return err
			}
			fs.SetLogger(log)
			runShell(fs)
			return nil
		},
	}
}

// runShell is a bufio.Scanner REPL loop; the interactive-line-reading
// packages used elsewhere in the ecosystem are overkill for a handful of
// debug commands, so this stays on the standard library.
func runShell(fs *terrafs.FileSystem) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("fs5600> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			runShellCommand(fs, fields)
		}
		fmt.Print("fs5600> ")
	}
}

func runShellCommand(fs *terrafs.FileSystem, fields []string) {
	switch fields[0] {
	case "quit", "exit":
		os.Exit(0)

	case "ls":
		if len(fields) < 2 {
			fmt.Println("usage: ls <path>")
			return
		}
		err := fs.Readdir(fields[1], func(name string, stat terrafs.Stat) bool {
			fmt.Printf("%-27s %8d %#o\n", name, stat.Size, stat.Mode)
			return true
		})
		if err != nil {
			fmt.Println(err)
		}

	case "stat":
		if len(fields) < 2 {
			fmt.Println("usage: stat <path>")
			return
		}
		st, err := fs.Getattr(fields[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("size=%d mode=%#o uid=%d gid=%d mtime=%d\n", st.Size, st.Mode, st.Uid, st.Gid, st.Mtime)

	case "cat":
		if len(fields) < 2 {
			fmt.Println("usage: cat <path>")
			return
		}
		st, err := fs.Getattr(fields[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		buf := make([]byte, st.Size)
		n, err := fs.Read(fields[1], buf, 0)
		if err != nil {
			fmt.Println(err)
			return
		}
		os.Stdout.Write(buf[:n])
		fmt.Println()

	case "statfs":
		st, err := fs.Statfs()
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("bsize=%d blocks=%d bfree=%d bavail=%d namemax=%d\n",
			st.Bsize, st.Blocks, st.Bfree, st.Bavail, st.Namemax)

	case "chmod":
		if len(fields) < 3 {
			fmt.Println("usage: chmod <path> <octal-mode>")
			return
		}
		mode, err := strconv.ParseUint(fields[2], 8, 16)
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := fs.Chmod(fields[1], uint16(mode)); err != nil {
			fmt.Println(err)
		}

	default:
		fmt.Printf("unknown command %q (try ls, stat, cat, statfs, chmod, quit)\n", fields[0])
	}
}
