package pkg

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Supported values for DatabaseConfig.Connection
const (
	ConnectionMySQL    = "mysql"
	ConnectionPostgres = "pgsql"
)

const dumpStderrLines = 10

// DatabaseConfig sub-config type for the database to dump
type DatabaseConfig struct {
	Connection string `json:"connection" yaml:"connection"`
	Host       string `json:"host" yaml:"host"`
	Port       uint16 `json:"port" yaml:"port"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	Database   string `json:"database" yaml:"database"`
}

// DumpFileName is the name of the dump artifact inside a snapshot
func (c DatabaseConfig) DumpFileName() string {
	return c.Database + ".sql.gz"
}

// DumpBinary is the program used to dump this kind of database
func (c DatabaseConfig) DumpBinary() string {
	if c.Connection == ConnectionPostgres {
		return "pg_dump"
	}
	return "mysqldump"
}

// DumpArgs returns the command line arguments for DumpBinary. The password
// is passed through the environment, never on the command line.
func (c DatabaseConfig) DumpArgs() []string {
	port := strconv.Itoa(int(c.Port))

	if c.Connection == ConnectionPostgres {
		return []string{
			"--host=" + c.Host,
			"--port=" + port,
			"--username=" + c.Username,
			"--no-password",
			"--dbname=" + c.Database,
		}
	}

	return []string{
		"--host=" + c.Host,
		"--port=" + port,
		"--user=" + c.Username,
		"--single-transaction",
		"--quick",
		"--routines",
		"--triggers",
		c.Database,
	}
}

func (c DatabaseConfig) passwordEnv() string {
	if c.Connection == ConnectionPostgres {
		return "PGPASSWORD=" + c.Password
	}
	return "MYSQL_PWD=" + c.Password
}

// DatabaseDumper produces gzip compressed dumps with mysqldump or pg_dump
type DatabaseDumper struct {
	Config DatabaseConfig
	Fs     afero.Fs

	// Binary overrides Config.DumpBinary()
	Binary       string
	ShowProgress bool
}

// Dump writes a compressed dump to destination and returns its size.
// The dump is streamed into destination.incomplete and only renamed once
// the dump program exited cleanly.
func (d *DatabaseDumper) Dump(ctx context.Context, destination string) (uint64, error) {
	size, err := d.dump(ctx, destination)
	if err != nil {
		return 0, &DumpError{Database: d.Config.Database, Err: err}
	}
	return size, nil
}

func (d *DatabaseDumper) dump(ctx context.Context, destination string) (uint64, error) {
	binary := d.Binary
	if binary == "" {
		binary = d.Config.DumpBinary()
	}

	temporaryFile := destination + ".incomplete"

	outputFile, err := d.Fs.Create(temporaryFile)
	if err != nil {
		return 0, err
	}

	err = d.run(ctx, binary, temporaryFile, outputFile)
	if closeErr := outputFile.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		if removeErr := d.Fs.Remove(temporaryFile); removeErr != nil && !os.IsNotExist(removeErr) {
			ErrorLog.Warn("Could not remove incomplete dump", "path", temporaryFile, "err", removeErr)
		}
		return 0, err
	}

	if err = d.Fs.Rename(temporaryFile, destination); err != nil {
		return 0, fmt.Errorf("dump completed but could not be renamed: %w", err)
	}

	return FileOrDirSize(d.Fs, destination)
}

func (d *DatabaseDumper) run(ctx context.Context, binary string, temporaryFile string, outputFile afero.File) error {
	Log.Infof("== `%s %s`", binary, strings.Join(d.Config.DumpArgs(), " "))

	compressor := gzip.NewWriter(outputFile)

	dumpCmd := exec.CommandContext(ctx, binary, d.Config.DumpArgs()...)
	dumpCmd.Env = append(os.Environ(), d.Config.passwordEnv())
	dumpCmd.Stdout = compressor

	stderr, err := dumpCmd.StderrPipe()
	if err != nil {
		return err
	}

	if err = dumpCmd.Start(); err != nil {
		return err
	}

	if d.ShowProgress {
		doneChan := make(chan bool)
		defer close(doneChan)
		go ReportProgressOnFileSize(d.Fs, temporaryFile, 0, doneChan)
	}

	// stderr must be drained before Wait closes the pipe
	collector := newLineCollector(dumpStderrLines)
	collector.consume(stderr)

	err = dumpCmd.Wait()
	if closeErr := compressor.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && collector.String() != "" {
			return fmt.Errorf("%s: %w\n%s", binary, err, collector.String())
		}
		return fmt.Errorf("%s: %w", binary, err)
	}

	return nil
}
