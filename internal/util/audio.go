package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo 存储音频信息
type AudioInfo struct {
	Duration float64 `json:"duration"` // 音频时长（秒）
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

// GetAudioInfo probes an uploaded audio file with ffmpeg. Used as a best
// effort sanity check before the asset is pushed to object storage.
func GetAudioInfo(audioPath string) (*AudioInfo, error) {
	fileInfo, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("音频文件不存在: %v", err)
	}

	jsonOutput, err := ffmpeg.Probe(audioPath)
	if err != nil {
		return nil, fmt.Errorf("获取音频信息失败: %v", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("解析音频信息失败: %v", err)
	}

	duration, _ := strconv.ParseFloat(result.Format.Duration, 64)

	return &AudioInfo{
		Duration: duration,
		Format:   result.Format.Format,
		Size:     fileInfo.Size(),
	}, nil
}
