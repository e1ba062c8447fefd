package u

import (
	"errors"
	"fmt"
	"io"

	"github.com/dsoprea/go-exif/v3"
)

// GetExifOrientation reads the EXIF orientation tag and returns the clockwise
// rotation, in degrees, that displays the image upright. Mirrored
// orientations map to their rotation part. A missing tag is 0.
func GetExifOrientation(img io.Reader) (int, error) {
	rawExif, err := exif.SearchAndExtractExifWithReader(img)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return 0, nil
		}
		return 0, errors.New("exif: error reading possible exif data: " + err.Error())
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0, errors.New("exif: error parsing exif data: " + err.Error())
	}

	var tag exif.ExifTag
	for _, t := range tags {
		if t.TagName == "Orientation" {
			tag = t
			break
		}
	}
	if tag.TagName != "Orientation" {
		return 0, nil // not found
	}

	var orientation uint16 = 0
	vals, ok := tag.Value.([]uint16)
	if !ok || len(vals) <= 0 {
		orientation, ok = tag.Value.(uint16)
		if !ok {
			return 0, errors.New("exif: error parsing orientation: parse error (not an int)")
		}
	} else {
		orientation = vals[0]
	}

	return OrientationDegrees(orientation)
}

// OrientationDegrees maps an EXIF orientation value to clockwise degrees.
func OrientationDegrees(orientation uint16) (int, error) {
	switch orientation {
	// Some devices produce invalid exif data when they intend to mean "no orientation"
	case 0, 1, 2:
		return 0, nil
	case 3, 4:
		return 180, nil
	case 5, 6:
		return 90, nil
	case 7, 8:
		return 270, nil
	}
	return 0, fmt.Errorf("orientation out of range: %d", orientation)
}
