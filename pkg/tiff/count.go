package tiff

import (
	"errors"
	"fmt"
	"math"

	"github.com/jpfielding/fasttiff.go/pkg/tiff/tag"
)

// NumberOfImages is the result of an image count. Error is the relative
// difference between the file size implied by an estimate and the real file
// size; it is 0 for exact counts.
type NumberOfImages struct {
	Count     int     `json:"count"`
	Error     float64 `json:"error"`
	Estimated bool    `json:"estimated"`
}

// GetNumberOfImages counts the image planes. A Micro-Manager index map or an
// ImageJ/NIH stack header answers directly. Otherwise the IFD chain is walked
// or, with estimate, the count is extrapolated from the file size assuming
// uniform uncompressed planes; compressed data gives ErrEstimateCompressed.
func (d *Decoder) GetNumberOfImages(estimate bool) (NumberOfImages, error) {
	ifdOffset, err := d.openImageFileHeader()
	if err != nil {
		return NumberOfImages{}, d.fail(fmt.Errorf("%w: reading first IFD offset: %v", ErrFormat, err))
	}
	if ifdOffset < headerSize {
		return NumberOfImages{}, d.fail(fmt.Errorf("%w: invalid first IFD offset %d", ErrFormat, ifdOffset))
	}

	n, err := d.indexMapHeader()
	if err != nil {
		return NumberOfImages{}, d.fail(err)
	}
	if n > 0 {
		return NumberOfImages{Count: n}, nil
	}

	sc := d.newScan(false)
	sc.mmRemaining = 0
	if err := d.in.SeekTo(ifdOffset); err != nil {
		return NumberOfImages{}, d.fail(err)
	}
	fi, err := d.openIFD(sc)
	if err != nil {
		return NumberOfImages{}, d.fail(err)
	}
	if fi == nil {
		return NumberOfImages{}, d.fail(fmt.Errorf("%w: first IFD is not an image", ErrFormat))
	}
	if fi.NImages > 1 {
		return NumberOfImages{Count: fi.NImages}, nil
	}
	next, err := d.getUnsignedInt()
	if err != nil {
		return NumberOfImages{}, d.fail(fmt.Errorf("%w: reading next IFD offset: %v", ErrFormat, err))
	}

	if estimate {
		res, err := d.estimate(fi, ifdOffset, next)
		if err != nil && !errors.Is(err, ErrEstimateCompressed) {
			return res, d.fail(err)
		}
		return res, err
	}

	count := 1
	seen := map[int64]bool{ifdOffset: true}
	for next > 0 && !seen[next] {
		seen[next] = true
		if err := d.in.SeekTo(next); err != nil {
			return NumberOfImages{}, d.fail(err)
		}
		image, err := d.scanIFD()
		if err != nil {
			return NumberOfImages{}, d.fail(err)
		}
		if !image {
			break
		}
		count++
		if count%progressInterval == 0 {
			d.cfg.progress.Status(fmt.Sprintf("Counting IFDs: %d", count))
		}
		if next, err = d.getUnsignedInt(); err != nil {
			return NumberOfImages{}, d.fail(fmt.Errorf("%w: reading next IFD offset: %v", ErrFormat, err))
		}
	}
	return NumberOfImages{Count: count}, nil
}

// scanIFD reads the entry table at the current position, leaving the stream
// on the next IFD pointer. It reports false for a vendor trailer IFD.
func (d *Decoder) scanIFD() (bool, error) {
	buf, n, err := d.readEntryTable()
	if err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		t := tag.Tag(d.order.Short(buf[i*entrySize], buf[i*entrySize+1]))
		if t.IsPrivateRange() {
			return false, nil
		}
	}
	return true, nil
}

// ifdFootprint is the number of bytes the IFD at offset occupies, including
// its out of line values.
func (d *Decoder) ifdFootprint(offset int64) (int64, error) {
	if err := d.in.SeekTo(offset); err != nil {
		return 0, err
	}
	buf, n, err := d.readEntryTable()
	if err != nil {
		return 0, err
	}
	size := int64(2 + n*entrySize + 4)
	for i := 0; i < n; i++ {
		e := d.parseEntry(buf[i*entrySize : (i+1)*entrySize])
		if v := e.count * int64(e.fieldType.Size()); v > 4 {
			size += v
		}
	}
	return size, nil
}

func (d *Decoder) estimate(fi *ExtendedFileInfo, ifd1, ifd2 int64) (NumberOfImages, error) {
	if fi.Compression != CompressionNone {
		return NumberOfImages{}, ErrEstimateCompressed
	}
	if ifd2 == 0 {
		return NumberOfImages{Count: 1}, nil
	}
	size1, err := d.ifdFootprint(ifd1)
	if err != nil {
		return NumberOfImages{}, err
	}
	size2, err := d.ifdFootprint(ifd2)
	if err != nil {
		return NumberOfImages{}, err
	}
	fileSize, err := d.in.Length()
	if err != nil {
		return NumberOfImages{}, err
	}
	imageSize := fi.ImageSize()
	first := headerSize + size1 + imageSize
	each := imageSize + size2
	if each <= 0 || fileSize <= 0 {
		return NumberOfImages{}, fmt.Errorf("%w: cannot estimate from image size %d and file size %d", ErrFormat, imageSize, fileSize)
	}
	count := 1 + int(math.Round(float64(fileSize-first)/float64(each)))
	count = max(count, 2)
	assumed := first + int64(count-1)*each
	return NumberOfImages{
		Count:     count,
		Error:     math.Abs(float64(fileSize-assumed)) / float64(fileSize),
		Estimated: true,
	}, nil
}
