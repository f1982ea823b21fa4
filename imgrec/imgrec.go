// Package imgrec contains an image recorder used to automatically save frames to disk.
package imgrec

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/tomlinsa/andorview/camera"
)

// Recorder saves frames with incrementing filenames in yyyy-mm-dd
// subfolders.  It is not thread safe.
type Recorder struct {
	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// timeFldr is the subfolder with yyyy-mm-dd format.
	timeFldr string

	// Enabled is a flag unused by this struct that allows consumers to disable its use in their code
	Enabled bool
}

// updateFolder checks the current time and updates the folder name as needed
func (r *Recorder) updateFolder() {
	now := time.Now()
	y, m, d := now.Year(), now.Month(), now.Day()
	r.timeFldr = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// mkDir makes the folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := path.Join(r.Root, r.timeFldr)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// SaveFITS writes a frame with its header cards to the next filename and
// returns the path written
func (r *Recorder) SaveFITS(fr *camera.Frame, metadata []fitsio.Card) (string, error) {
	fn, err := r.nextFile(".fits")
	if err != nil {
		return "", err
	}
	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	if err := WriteFITS(fid, fr, metadata); err != nil {
		return "", err
	}
	r.counter++
	return fn, nil
}

// SavePNG writes a rendered frame to the next filename and returns the
// path written
func (r *Recorder) SavePNG(img *image.Gray) (string, error) {
	fn, err := r.nextFile(".png")
	if err != nil {
		return "", err
	}
	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	if err := png.Encode(fid, img); err != nil {
		return "", err
	}
	r.counter++
	return fn, nil
}

// nextFile makes the dated folder and returns the next free path in it
func (r *Recorder) nextFile(ext string) (string, error) {
	r.updateFolder()
	fldr, err := r.mkDir()
	if err != nil {
		return "", err
	}
	fn := fmt.Sprintf("%s%06d%s", r.Prefix, r.counter, ext)
	return path.Join(fldr, fn), nil
}

// Incr updates the filename counter; it scans the folder to do so.  If there is an error, the counter is not incremented
func (r *Recorder) Incr() {
	r.updateFolder()
	dn, _ := r.mkDir()
	files, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, file := range files {
		// skip directories and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		ext := path.Ext(fn)
		if ext != ".fits" && ext != ".png" {
			continue
		}
		bit := strings.TrimPrefix(fn, r.Prefix)
		bit = strings.TrimSuffix(bit, ext)
		n, err := strconv.Atoi(bit)
		if err != nil {
			return
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}
