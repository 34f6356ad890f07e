package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// FindLatestSVG возвращает самый свежий SVG-файл в директории.
func FindLatestSVG(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".svg") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено SVG-файлов", dir)
	}

	return latestFile, nil
}

// CheckFrameBudget оценивает, поместится ли буфер кадров задания в доступную
// память. Оценка по несжатому RGBA — верхняя граница рабочего набора при
// муксировании.
func CheckFrameBudget(width, height, frames int) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		// Нет данных о памяти — не блокируем работу.
		return nil
	}

	need := uint64(width) * uint64(height) * 4 * uint64(frames)
	if need > vm.Available/2 {
		return fmt.Errorf("буфер кадров ~%d МБ превышает половину доступной памяти (%d МБ)",
			need/(1<<20), vm.Available/(1<<20))
	}
	return nil
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)

	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err == nil {
		for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
			if strings.Contains(string(out), name) {
				return name, ""
			}
		}
	}

	return "libx264", ""
}
