package h264

import (
	"fmt"
	"math"

	"github.com/gwuhaolin/flvpull/av"

	log "github.com/sirupsen/logrus"
)

// SPS holds what a player needs from a sequence parameter set
type SPS struct {
	ProfileIDC      byte
	ConstraintFlags byte
	LevelIDC        byte
	ProfileString   string
	LevelString     string
	BitDepth        int
	// ChromaFormat is 0 for monochrome, else 420, 422 or 444
	ChromaFormat int
	CodecSize    av.Size
	PresentSize  av.Size
	SarRatio     av.Size
	FrameRate    av.FrameRate
}

var chromaFormats = []int{0, 420, 422, 444}

// sarTable - indexed by aspect_ratio_idc 1..16 (Table E-1)
var sarTable = [][2]int{
	{1, 1}, {12, 11}, {10, 11}, {16, 11}, {40, 33}, {24, 11}, {20, 11}, {32, 11},
	{80, 33}, {18, 11}, {15, 11}, {64, 33}, {160, 99}, {4, 3}, {3, 2}, {2, 1},
}

const extendedSAR = 255

func profileString(idc byte) string {
	switch idc {
	case 66:
		return "Baseline"
	case 77:
		return "Main"
	case 88:
		return "Extended"
	case 100:
		return "High"
	case 110:
		return "High10"
	case 122:
		return "High422"
	case 244:
		return "High444"
	}
	return "Unknown"
}

func levelString(idc byte) string {
	return fmt.Sprintf("%.1f", float64(idc)/10)
}

func hasChromaInfo(idc uint) bool {
	switch idc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 144:
		return true
	}
	return false
}

// ParseSPS parses an SPS NAL unit including its header byte, without start
// code or length prefix.
func ParseSPS(nalu []byte) (*SPS, error) {
	if len(nalu) < 4 {
		return nil, ErrSpsData
	}
	br := newBitReader(removeEmulationPrevention(nalu[1:]))
	sps := &SPS{BitDepth: 8}

	profileIdc, err := br.readBits(8)
	if err != nil {
		return nil, err
	}
	constraintFlags, err := br.readBits(8)
	if err != nil {
		return nil, err
	}
	levelIdc, err := br.readBits(8)
	if err != nil {
		return nil, err
	}
	sps.ProfileIDC = byte(profileIdc)
	sps.ConstraintFlags = byte(constraintFlags)
	sps.LevelIDC = byte(levelIdc)
	sps.ProfileString = profileString(sps.ProfileIDC)
	sps.LevelString = levelString(sps.LevelIDC)

	// seq_parameter_set_id
	if _, err := br.readUE(); err != nil {
		return nil, err
	}

	chromaFormatIdc := uint(1)
	if hasChromaInfo(profileIdc) {
		if chromaFormatIdc, err = br.readUE(); err != nil {
			return nil, err
		}
		if chromaFormatIdc > 3 {
			return nil, fmt.Errorf("%w: chroma_format_idc %d", ErrSpsData, chromaFormatIdc)
		}
		if chromaFormatIdc == 3 {
			// separate_colour_plane_flag
			if _, err := br.readBits(1); err != nil {
				return nil, err
			}
		}
		bitDepthLuma, err := br.readUE()
		if err != nil {
			return nil, err
		}
		sps.BitDepth = int(bitDepthLuma) + 8
		// bit_depth_chroma_minus8
		if _, err := br.readUE(); err != nil {
			return nil, err
		}
		// qpprime_y_zero_transform_bypass_flag
		if _, err := br.readBits(1); err != nil {
			return nil, err
		}
		scalingMatrix, err := br.readBool()
		if err != nil {
			return nil, err
		}
		if scalingMatrix {
			limit := 8
			if chromaFormatIdc == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				present, err := br.readBool()
				if err != nil {
					return nil, err
				}
				if !present {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if err := br.skipScalingList(size); err != nil {
					return nil, err
				}
			}
		}
	}
	sps.ChromaFormat = chromaFormats[chromaFormatIdc]

	// log2_max_frame_num_minus4
	if _, err := br.readUE(); err != nil {
		return nil, err
	}
	picOrderCntType, err := br.readUE()
	if err != nil {
		return nil, err
	}
	switch picOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4
		if _, err := br.readUE(); err != nil {
			return nil, err
		}
	case 1:
		// delta_pic_order_always_zero_flag
		if _, err := br.readBits(1); err != nil {
			return nil, err
		}
		if _, err := br.readSE(); err != nil {
			return nil, err
		}
		if _, err := br.readSE(); err != nil {
			return nil, err
		}
		numRefFrames, err := br.readUE()
		if err != nil {
			return nil, err
		}
		for i := uint(0); i < numRefFrames; i++ {
			if _, err := br.readSE(); err != nil {
				return nil, err
			}
		}
	}

	// max_num_ref_frames
	if _, err := br.readUE(); err != nil {
		return nil, err
	}
	// gaps_in_frame_num_value_allowed_flag
	if _, err := br.readBits(1); err != nil {
		return nil, err
	}
	picWidthMbs, err := br.readUE()
	if err != nil {
		return nil, err
	}
	picHeightMapUnits, err := br.readUE()
	if err != nil {
		return nil, err
	}
	frameMbsOnly, err := br.readBits(1)
	if err != nil {
		return nil, err
	}
	if frameMbsOnly == 0 {
		// mb_adaptive_frame_field_flag
		if _, err := br.readBits(1); err != nil {
			return nil, err
		}
	}
	// direct_8x8_inference_flag
	if _, err := br.readBits(1); err != nil {
		return nil, err
	}

	var cropLeft, cropRight, cropTop, cropBottom uint
	cropping, err := br.readBool()
	if err != nil {
		return nil, err
	}
	if cropping {
		for _, v := range []*uint{&cropLeft, &cropRight, &cropTop, &cropBottom} {
			if *v, err = br.readUE(); err != nil {
				return nil, err
			}
		}
	}

	sps.SarRatio = av.Size{Width: 1, Height: 1}
	sps.FrameRate = av.FrameRate{Fixed: true}
	if vui, err := br.readBool(); err == nil && vui {
		// a truncated VUI keeps whatever was read before the end
		if err := parseVUI(br, sps); err != nil {
			log.Debugf("h264: vui parameters truncated: %v", err)
		}
	}

	var cropUnitX, cropUnitY uint
	if chromaFormatIdc == 0 {
		cropUnitX = 1
		cropUnitY = 2 - frameMbsOnly
	} else {
		subWidthC, subHeightC := uint(2), uint(1)
		if chromaFormatIdc == 3 {
			subWidthC = 1
		}
		if chromaFormatIdc == 1 {
			subHeightC = 2
		}
		cropUnitX = subWidthC
		cropUnitY = subHeightC * (2 - frameMbsOnly)
	}

	width := int((picWidthMbs+1)*16) - int(cropUnitX*(cropLeft+cropRight))
	height := int((2-frameMbsOnly)*(picHeightMapUnits+1)*16) - int(cropUnitY*(cropTop+cropBottom))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: picture size %dx%d", ErrSpsData, width, height)
	}
	sps.CodecSize = av.Size{Width: width, Height: height}

	presentWidth := width
	if sps.SarRatio.Width > 0 && sps.SarRatio.Height > 0 && sps.SarRatio.Width != sps.SarRatio.Height {
		scale := float64(sps.SarRatio.Width) / float64(sps.SarRatio.Height)
		presentWidth = int(math.Ceil(float64(width) * scale))
	}
	sps.PresentSize = av.Size{Width: presentWidth, Height: height}
	return sps, nil
}

// parseVUI reads vui_parameters up to the timing info; HRD and the rest are
// not needed.
func parseVUI(br *bitReader, sps *SPS) error {
	arPresent, err := br.readBool()
	if err != nil {
		return err
	}
	if arPresent {
		idc, err := br.readBits(8)
		if err != nil {
			return err
		}
		if idc > 0 && int(idc) <= len(sarTable) {
			sps.SarRatio = av.Size{Width: sarTable[idc-1][0], Height: sarTable[idc-1][1]}
		} else if idc == extendedSAR {
			w, err := br.readBits(16)
			if err != nil {
				return err
			}
			h, err := br.readBits(16)
			if err != nil {
				return err
			}
			sps.SarRatio = av.Size{Width: int(w), Height: int(h)}
		}
	}

	overscan, err := br.readBool()
	if err != nil {
		return err
	}
	if overscan {
		// overscan_appropriate_flag
		if _, err := br.readBits(1); err != nil {
			return err
		}
	}

	videoSignal, err := br.readBool()
	if err != nil {
		return err
	}
	if videoSignal {
		// video_format + video_full_range_flag
		if _, err := br.readBits(4); err != nil {
			return err
		}
		colour, err := br.readBool()
		if err != nil {
			return err
		}
		if colour {
			if _, err := br.readBits(24); err != nil {
				return err
			}
		}
	}

	chromaLoc, err := br.readBool()
	if err != nil {
		return err
	}
	if chromaLoc {
		if _, err := br.readUE(); err != nil {
			return err
		}
		if _, err := br.readUE(); err != nil {
			return err
		}
	}

	timing, err := br.readBool()
	if err != nil {
		return err
	}
	if timing {
		numUnitsInTick, err := br.readBits(32)
		if err != nil {
			return err
		}
		timeScale, err := br.readBits(32)
		if err != nil {
			return err
		}
		fixed, err := br.readBool()
		if err != nil {
			return err
		}
		sps.FrameRate.Fixed = fixed
		if numUnitsInTick > 0 {
			sps.FrameRate.FPSNum = int(timeScale)
			sps.FrameRate.FPSDen = int(numUnitsInTick * 2)
			sps.FrameRate.FPS = float64(sps.FrameRate.FPSNum) / float64(sps.FrameRate.FPSDen)
		}
	}
	return nil
}
