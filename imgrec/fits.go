package imgrec

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.com/tomlinsa/andorview/camera"
)

// HeaderCards makes the stack of FITS cards for a frame.  Metadata comes
// from the negotiated capabilities and the live configuration; errors in
// gathering it never block the save.
func HeaderCards(caps camera.Capabilities, cfg camera.Config, fr *camera.Frame) []fitsio.Card {
	ts := fmt.Sprintf("%d-%02d-%02dT%02d:%02d:%02d",
		fr.Stamp.Year(),
		fr.Stamp.Month(),
		fr.Stamp.Day(),
		fr.Stamp.Hour(),
		fr.Stamp.Minute(),
		fr.Stamp.Second())
	return []fitsio.Card{
		{Name: "HDRVER", Value: "EMCCD-1", Comment: "header version"},
		{Name: "CAMMODL", Value: caps.Model, Comment: "camera model"},
		{Name: "CAMSN", Value: caps.Serial, Comment: "camera serial number"},
		{Name: "BITDEPTH", Value: fr.BitDepth, Comment: "2^BITDEPTH is the maximum possible DN"},

		{Name: "DATE", Value: ts}, // timestamp is standard and does not require comment

		{Name: "EXPTIME", Value: cfg.ExposureTime.Seconds(), Comment: "exposure time, seconds"},
		{Name: "TRIGMODE", Value: cfg.TriggerMode, Comment: "trigger source"},
		{Name: "EMGAIN", Value: cfg.EMGain, Comment: "EM gain setting"},
		{Name: "FRAMESEQ", Value: int(fr.Seq), Comment: "sequence number within the session"},

		{Name: "AOIL", Value: cfg.AOI.Left, Comment: "1-based left pixel of the AOI"},
		{Name: "AOIT", Value: cfg.AOI.Top, Comment: "1-based top pixel of the AOI"},
		{Name: "AOIW", Value: cfg.AOI.Width, Comment: "AOI width, px"},
		{Name: "AOIH", Value: cfg.AOI.Height, Comment: "AOI height, px"},
		{Name: "AOIB", Value: cfg.Binning.HxV(), Comment: "AOI Binning, HxV"}}
}

// WriteFITS streams a frame to w as a 16-bit FITS image
func WriteFITS(w io.Writer, fr *camera.Frame, metadata []fitsio.Card) error {
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{fr.Width, fr.Height})
	defer im.Close()
	if err := im.Header().Append(metadata...); err != nil {
		return err
	}
	ints := make([]int16, len(fr.Pix))
	for i, v := range fr.Pix {
		ints[i] = int16(v - 32768)
	}
	if err := im.Write(ints); err != nil {
		return err
	}
	return fits.Write(im)
}
