package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
	"github.com/pavelanni/reportwriter/internal/seed"
	"github.com/pavelanni/reportwriter/internal/store"
	"github.com/pavelanni/reportwriter/internal/transfer"
)

// withStore runs fn against the database named by the command's flags.
func withStore(cmd *cobra.Command, fn func(v *viper.Viper, db *store.Store) error) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(v, db)
}

func loadClassAndTemplate(db *store.Store, classID, templateID string) (*model.Class, *model.Template, error) {
	if classID == "" || templateID == "" {
		return nil, nil, errors.New("--class and --template are required")
	}
	class, err := db.GetClass(classID)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := db.GetTemplate(templateID)
	if err != nil {
		return nil, nil, err
	}
	return class, tmpl, nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate reports for a class from saved section state",
		Long: `Regenerates the report of every student in a class (or one student)
from the section state saved for the template. A state file, a JSON object
of section id to section state, is applied on top for every student.`,
		RunE: runGenerate,
	}
	addDBFlags(cmd)
	f := cmd.Flags()
	f.String("class", "", "Class ID")
	f.String("template", "", "Template ID")
	f.String("student", "", "Only this student ID")
	f.String("state", "", "JSON file of section state applied to every student")
	f.Bool("save", false, "Save the generated reports")
	f.Uint64("rand-seed", 0, "Seed for comment selection (0 uses a random seed)")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
		class, tmpl, err := loadClassAndTemplate(db, v.GetString("class"), v.GetString("template"))
		if err != nil {
			return err
		}

		var patches map[string]json.RawMessage
		if path := v.GetString("state"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read state file: %w", err)
			}
			if err := json.Unmarshal(data, &patches); err != nil {
				return fmt.Errorf("parse state file %s: %w", path, err)
			}
			for id := range patches {
				if tmpl.Section(id) == nil {
					return fmt.Errorf("state file %s: %w: %s", path, report.ErrUnknownSection, id)
				}
			}
		}

		var opts []report.Option
		if s := v.GetUint64("rand-seed"); s != 0 {
			r := rand.New(rand.NewPCG(s, s))
			opts = append(opts, report.WithDraw(r.IntN))
		}
		sess, err := report.NewSession(report.NewGenerator(opts...), db, class, tmpl)
		if err != nil {
			return err
		}

		only := v.GetString("student")
		found := only == ""
		out := cmd.OutOrStdout()
		for i, st := range class.Students {
			if only != "" && st.ID != only {
				continue
			}
			found = true
			// Unsaved state of the previous student is dropped.
			if err := sess.Navigate(i, func() bool { return true }); err != nil {
				return err
			}
			// Template order keeps seeded draws reproducible.
			for _, sec := range tmpl.Sections {
				patch, ok := patches[sec.ID]
				if !ok {
					continue
				}
				if _, err := sess.Update(sec.ID, patch); err != nil {
					return fmt.Errorf("%s: section %s: %w", st.FullName(), sec.ID, err)
				}
			}
			content := sess.Preview()
			if v.GetBool("save") {
				r, err := sess.Save()
				if err != nil {
					return err
				}
				content = r.Content
				slog.Info("saved report", "student", st.FullName(), "words", report.WordCount(content))
			}
			fmt.Fprintf(out, "=== %s ===\n%s\n\n", st.FullName(), content)
		}
		if !found {
			return fmt.Errorf("student %q is not in class %s", only, class.Name)
		}
		return nil
	})
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write saved reports of a class to text files",
		RunE:  runExport,
	}
	addDBFlags(cmd)
	f := cmd.Flags()
	f.String("class", "", "Class ID")
	f.String("template", "", "Template ID")
	f.StringP("output", "o", ".", "Output directory, or - for stdout")
	f.Bool("per-student", false, "Write one file per student instead of one class file")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
		if _, _, err := loadClassAndTemplate(db, v.GetString("class"), v.GetString("template")); err != nil {
			return err
		}
		class, reports, err := db.ExportClassReports(v.GetString("class"), v.GetString("template"))
		if err != nil {
			return err
		}

		dir := v.GetString("output")
		if !v.GetBool("per-student") {
			return writeOutput(cmd.OutOrStdout(), dir, report.ClassExportFileName(class), report.ClassExportText(reports))
		}
		written := 0
		for _, sr := range reports {
			if sr.Report == nil {
				slog.Warn("no saved report", "student", sr.Student.FullName())
				continue
			}
			name := report.ExportFileName(sr.Student)
			if err := writeOutput(cmd.OutOrStdout(), dir, name, report.ExportText(sr.Student, sr.Report.Content)); err != nil {
				return err
			}
			written++
		}
		slog.Info("exported reports", "class", class.Name, "written", written, "students", len(reports))
		return nil
	})
}

// writeOutput writes content to dir/name, or to stdout when dir is "-".
func writeOutput(stdout io.Writer, dir, name, content string) error {
	if dir == "-" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("wrote file", "path", path)
	return nil
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Export, import and duplicate report templates",
	}

	exp := &cobra.Command{
		Use:   "export <template-id>",
		Short: "Write a template to a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplateExport,
	}
	addDBFlags(exp)
	exp.Flags().StringP("output", "o", "", "Output file (default: derived from the template name); .yaml or .yml selects YAML")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a template from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplateImport,
	}
	addDBFlags(imp)
	imp.Flags().String("policy", string(transfer.PolicyCopy), "On a name collision: copy (keep both) or replace")
	imp.Flags().Bool("force", false, "Import even if this file was imported before")

	dup := &cobra.Command{
		Use:   "duplicate <template-id>",
		Short: "Copy a template under a new name",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplateDuplicate,
	}
	addDBFlags(dup)

	cmd.AddCommand(exp, imp, dup)
	return cmd
}

func runTemplateExport(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
		tmpl, err := db.GetTemplate(args[0])
		if err != nil {
			return err
		}
		path := v.GetString("output")
		if path == "" {
			path = transfer.ExportFileName(tmpl)
		}
		data, err := transfer.Encode(tmpl, transfer.FormatFor(path), time.Now())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		slog.Info("exported template", "name", tmpl.Name, "path", path)
		return nil
	})
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
		policy := transfer.Policy(v.GetString("policy"))
		if !policy.Valid() {
			return fmt.Errorf("unknown policy %q: use copy or replace", policy)
		}
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := transfer.Hash(data)
		if !v.GetBool("force") {
			id, err := db.ImportedTemplate(hash)
			if err != nil {
				return err
			}
			if id != "" {
				if _, err := db.GetTemplate(id); err == nil {
					slog.Info("file already imported, skipping", "path", path, "template_id", id)
					return nil
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
		}

		env, err := transfer.Decode(data, transfer.FormatFor(path))
		if err != nil {
			return err
		}
		tmpl, err := transfer.Import(db, env, policy)
		if err != nil {
			return err
		}
		if err := db.MarkImported(hash, tmpl.ID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tmpl.ID)
		return nil
	})
}

func runTemplateDuplicate(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(_ *viper.Viper, db *store.Store) error {
		tmpl, err := db.GetTemplate(args[0])
		if err != nil {
			return err
		}
		dup, err := transfer.Duplicate(tmpl)
		if err != nil {
			return err
		}
		if err := db.SaveTemplate(dup); err != nil {
			return err
		}
		slog.Info("duplicated template", "name", dup.Name, "id", dup.ID)
		fmt.Fprintln(cmd.OutOrStdout(), dup.ID)
		return nil
	})
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every template, class, report and comment bank to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
				snap, err := db.LoadAll()
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encode snapshot: %w", err)
				}
				out := v.GetString("output")
				if out == "-" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				slog.Info("backup written",
					"path", out,
					"templates", len(snap.Templates),
					"classes", len(snap.Classes),
					"reports", len(snap.Reports),
					"comment_banks", len(snap.CommentBanks),
				)
				return nil
			})
		},
	}
	addDBFlags(cmd)
	cmd.Flags().StringP("output", "o", "reportwriter-backup.json", "Backup file, or - for stdout")
	return cmd
}

func restoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace all report data with the contents of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(_ *viper.Viper, db *store.Store) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
				var snap model.Snapshot
				if err := json.Unmarshal(data, &snap); err != nil {
					return fmt.Errorf("parse backup %s: %w", args[0], err)
				}
				if err := db.SaveAll(snap); err != nil {
					return err
				}
				slog.Info("backup restored",
					"path", args[0],
					"templates", len(snap.Templates),
					"classes", len(snap.Classes),
					"reports", len(snap.Reports),
				)
				return nil
			})
		},
	}
	addDBFlags(cmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo template and class",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(_ *viper.Viper, db *store.Store) error {
				created, err := seed.Apply(db)
				if err != nil {
					return err
				}
				if !created {
					slog.Info("demo data already present")
				}
				return nil
			})
		},
	}
	addDBFlags(cmd)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a teacher or admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
				username := strings.TrimSpace(args[0])
				password := v.GetString("password")
				if password == "" {
					return errors.New("--password is required")
				}
				role := model.UserRole(v.GetString("role"))
				if role != model.UserRoleTeacher && role != model.UserRoleAdmin {
					return fmt.Errorf("unknown role %q", role)
				}
				existing, err := db.GetUserByUsername(username)
				if err != nil {
					return err
				}
				if existing != nil {
					return fmt.Errorf("user %q already exists", username)
				}
				id, err := createUser(db, username, v.GetString("display-name"), password, role)
				if err != nil {
					return err
				}
				slog.Info("created user", "id", id, "username", username, "role", role)
				return nil
			})
		},
	}
	addDBFlags(create)
	create.Flags().String("password", "", "Password (or set REPORTWRITER_PASSWORD)")
	create.Flags().String("display-name", "", "Display name (default: username)")
	create.Flags().String("role", string(model.UserRoleTeacher), "Role: teacher or admin")

	passwd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password and end their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(v *viper.Viper, db *store.Store) error {
				password := v.GetString("password")
				if password == "" {
					return errors.New("--password is required")
				}
				u, err := db.GetUserByUsername(args[0])
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("user %q: %w", args[0], store.ErrNotFound)
				}
				hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("hash password: %w", err)
				}
				if err := db.SetUserPassword(u.ID, string(hash)); err != nil {
					return err
				}
				slog.Info("password changed", "username", u.Username)
				return nil
			})
		},
	}
	addDBFlags(passwd)
	passwd.Flags().String("password", "", "New password (or set REPORTWRITER_PASSWORD)")

	cmd.AddCommand(create, passwd)
	return cmd
}
