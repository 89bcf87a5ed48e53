package h264

import "math/bits"

type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) bits(v uint, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << uint(7-w.n%8)
		}
		w.n++
	}
}

func (w *bitWriter) ue(v uint) {
	l := bits.Len(v + 1)
	w.bits(0, l-1)
	w.bits(v+1, l)
}

func (w *bitWriter) flag(b bool) {
	if b {
		w.bits(1, 1)
	} else {
		w.bits(0, 1)
	}
}

func (w *bitWriter) rbspTrailing() []byte {
	w.bits(1, 1)
	for w.n%8 != 0 {
		w.bits(0, 1)
	}
	return w.buf
}

// escape inserts emulation prevention bytes
func escape(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+4)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// highSPS1080 is a High@4.0 1920x1080 SPS, SAR 1:1, 30000/1001 fps
func highSPS1080() []byte {
	w := &bitWriter{}
	w.bits(100, 8)
	w.bits(0, 8)
	w.bits(40, 8)
	w.ue(0) // sps id
	w.ue(1) // chroma_format_idc
	w.ue(0) // bit_depth_luma_minus8
	w.ue(0) // bit_depth_chroma_minus8
	w.flag(false)
	w.flag(false) // scaling matrix
	w.ue(0)       // log2_max_frame_num_minus4
	w.ue(0)       // poc type
	w.ue(2)       // log2_max_poc_lsb_minus4
	w.ue(4)       // max_num_ref_frames
	w.flag(false) // gaps
	w.ue(119)     // width in mbs - 1
	w.ue(67)      // height in map units - 1
	w.flag(true)  // frame_mbs_only
	w.flag(true)  // direct_8x8
	w.flag(true)  // cropping
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.flag(true) // vui
	w.flag(true) // aspect ratio
	w.bits(1, 8)
	w.flag(false) // overscan
	w.flag(false) // video signal
	w.flag(false) // chroma loc
	w.flag(true)  // timing
	w.bits(1001, 32)
	w.bits(60000, 32)
	w.flag(true)
	w.flag(false) // nal hrd
	w.flag(false) // vcl hrd
	w.flag(false) // pic struct
	w.flag(false) // bitstream restriction
	return append([]byte{0x67}, escape(w.rbspTrailing())...)
}

// baselineSPS360 is a Baseline@3.0 640x360 SPS with a 4:3 SAR and no timing
func baselineSPS360() []byte {
	w := &bitWriter{}
	w.bits(66, 8)
	w.bits(0xc0, 8)
	w.bits(30, 8)
	w.ue(0)       // sps id
	w.ue(0)       // log2_max_frame_num_minus4
	w.ue(2)       // poc type
	w.ue(1)       // max_num_ref_frames
	w.flag(false) // gaps
	w.ue(39)
	w.ue(22)
	w.flag(true)
	w.flag(true)
	w.flag(true)
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.flag(true) // vui
	w.flag(true)
	w.bits(14, 8)
	w.flag(false)
	w.flag(false)
	w.flag(false)
	w.flag(false) // timing
	w.flag(false)
	w.flag(false)
	w.flag(false)
	w.flag(false)
	return append([]byte{0x67}, escape(w.rbspTrailing())...)
}

// decoderConfig builds an AVCDecoderConfigurationRecord around sps
func decoderConfig(sps []byte, ppsList ...[]byte) []byte {
	rec := []byte{0x01, sps[1], sps[2], sps[3], 0xff, 0xe1}
	rec = append(rec, byte(len(sps)>>8), byte(len(sps)))
	rec = append(rec, sps...)
	rec = append(rec, byte(len(ppsList)))
	for _, pps := range ppsList {
		rec = append(rec, byte(len(pps)>>8), byte(len(pps)))
		rec = append(rec, pps...)
	}
	return rec
}

// truncatedVUISPS is a High@4.0 1920x1080 SPS with a 4:3 SAR whose VUI
// stops inside num_units_in_tick
func truncatedVUISPS() []byte {
	w := &bitWriter{}
	w.bits(100, 8)
	w.bits(0, 8)
	w.bits(40, 8)
	w.ue(0)
	w.ue(1)
	w.ue(0)
	w.ue(0)
	w.flag(false)
	w.flag(false)
	w.ue(0)
	w.ue(0)
	w.ue(2)
	w.ue(4)
	w.flag(false)
	w.ue(119)
	w.ue(67)
	w.flag(true)
	w.flag(true)
	w.flag(true)
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.flag(true) // vui
	w.flag(true)
	w.bits(14, 8)
	w.flag(false)
	w.flag(false)
	w.flag(false)
	w.flag(true) // timing
	w.bits(1001, 16)
	return append([]byte{0x67}, escape(w.buf)...)
}
