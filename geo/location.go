// Package geo maps observation coordinates to Japanese prefectures and
// timestamps to meteorological seasons. The prefecture lookup is a coarse
// bounding-box table; reverse geocoding would be more precise but needs
// no external service this way.
package geo

import "time"

// PrefectureUnknown is returned when no bounding box matches.
const PrefectureUnknown = "不明"

type box struct {
	minLat, maxLat float64
	minLng, maxLng float64
}

func (b box) contains(lat, lng float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lng >= b.minLng && lng <= b.maxLng
}

// Tokyo is deliberately listed before the wider Chiba box; Chiba also
// excludes Tokyo's bounds so the narrower region wins either way.
var tokyoBox = box{35.3, 35.9, 138.7, 139.9}

type prefectureBox struct {
	name    string
	bounds  box
	exclude *box
}

// Boxes are not mutually exclusive by construction; declaration order
// breaks the remaining ties, so do not reorder.
var prefectureBoxes = []prefectureBox{
	{name: "北海道", bounds: box{41.0, 45.5, 139.0, 146.0}},
	{name: "青森県", bounds: box{40.0, 41.5, 139.5, 141.5}},
	{name: "岩手県", bounds: box{38.5, 40.5, 140.5, 142.0}},
	{name: "宮城県", bounds: box{37.5, 39.0, 140.5, 141.5}},
	{name: "秋田県", bounds: box{38.5, 40.5, 139.5, 141.0}},
	{name: "山形県", bounds: box{37.5, 39.0, 139.5, 140.5}},
	{name: "福島県", bounds: box{36.5, 38.0, 139.5, 141.0}},
	{name: "東京都", bounds: tokyoBox},
	{name: "神奈川県", bounds: box{35.0, 35.7, 138.5, 139.5}},
	{name: "千葉県", bounds: box{35.0, 36.0, 139.5, 140.9}, exclude: &tokyoBox},
	{name: "埼玉県", bounds: box{35.5, 36.5, 138.5, 139.8}},
	{name: "茨城県", bounds: box{35.5, 36.8, 139.5, 140.8}},
	{name: "栃木県", bounds: box{36.0, 37.0, 139.0, 140.0}},
	{name: "群馬県", bounds: box{36.0, 36.8, 138.5, 139.5}},
	{name: "新潟県", bounds: box{36.5, 38.5, 137.5, 139.5}},
	{name: "富山県", bounds: box{36.0, 37.0, 136.5, 137.5}},
	{name: "石川県", bounds: box{36.0, 37.5, 136.0, 137.5}},
	{name: "福井県", bounds: box{35.5, 36.5, 135.5, 136.5}},
	{name: "山梨県", bounds: box{35.0, 36.0, 138.0, 139.0}},
	{name: "長野県", bounds: box{35.5, 37.0, 137.5, 138.5}},
	{name: "岐阜県", bounds: box{35.0, 36.5, 136.5, 137.5}},
	{name: "静岡県", bounds: box{34.5, 35.5, 137.5, 139.0}},
	{name: "愛知県", bounds: box{34.5, 35.5, 136.5, 137.5}},
	{name: "三重県", bounds: box{33.5, 35.0, 135.5, 136.8}},
	{name: "滋賀県", bounds: box{34.5, 35.5, 135.5, 136.5}},
	{name: "京都府", bounds: box{34.5, 35.5, 135.0, 136.0}},
	{name: "大阪府", bounds: box{34.3, 34.9, 135.2, 135.8}},
	{name: "兵庫県", bounds: box{34.0, 35.5, 134.0, 135.5}},
	{name: "奈良県", bounds: box{34.0, 34.8, 135.5, 136.0}},
	{name: "和歌山県", bounds: box{33.5, 34.5, 135.0, 136.0}},
	{name: "鳥取県", bounds: box{35.0, 35.8, 133.5, 134.5}},
	{name: "島根県", bounds: box{34.5, 36.0, 131.5, 133.5}},
	{name: "岡山県", bounds: box{34.5, 35.5, 133.5, 134.5}},
	{name: "広島県", bounds: box{34.0, 35.0, 132.0, 133.5}},
	{name: "山口県", bounds: box{33.5, 34.8, 130.5, 132.0}},
	{name: "徳島県", bounds: box{33.5, 34.5, 133.5, 134.5}},
	{name: "香川県", bounds: box{34.0, 34.5, 133.5, 134.5}},
	{name: "愛媛県", bounds: box{32.5, 34.5, 132.5, 133.5}},
	{name: "高知県", bounds: box{32.5, 34.0, 132.5, 134.0}},
	{name: "福岡県", bounds: box{33.0, 34.0, 130.0, 131.0}},
	{name: "佐賀県", bounds: box{33.0, 33.8, 129.5, 130.5}},
	{name: "長崎県", bounds: box{32.5, 34.5, 128.5, 130.0}},
	{name: "熊本県", bounds: box{32.0, 33.5, 130.0, 131.5}},
	{name: "大分県", bounds: box{32.5, 33.8, 130.5, 132.0}},
	{name: "宮崎県", bounds: box{31.5, 32.5, 130.5, 132.0}},
	{name: "鹿児島県", bounds: box{30.5, 32.0, 129.5, 131.0}},
	{name: "沖縄県", bounds: box{24.0, 27.0, 123.0, 130.0}},
}

// Prefecture returns the prefecture containing the coordinate, or
// PrefectureUnknown when no box matches.
func Prefecture(lat, lng float64) string {
	for _, p := range prefectureBoxes {
		if !p.bounds.contains(lat, lng) {
			continue
		}
		if p.exclude != nil && p.exclude.contains(lat, lng) {
			continue
		}
		return p.name
	}
	return PrefectureUnknown
}

// Season returns the meteorological season (春/夏/秋/冬) for an
// epoch-millisecond timestamp in the local calendar.
func Season(timestampMs int64) string {
	month := int(time.UnixMilli(timestampMs).Month())
	switch {
	case month >= 3 && month <= 5:
		return "春"
	case month >= 6 && month <= 8:
		return "夏"
	case month >= 9 && month <= 11:
		return "秋"
	default:
		return "冬"
	}
}
