package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/job"
	"github.com/ivlev/svg2video/internal/sampler"
	"github.com/ivlev/svg2video/internal/system"
	"github.com/ivlev/svg2video/internal/video"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/svg", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	inputPtr := flag.String("input", "", "Путь к анимированному SVG (по умолчанию: самый свежий файл в input/svg/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	fpsPtr := flag.Float64("fps", 0, "Частота кадров (по умолчанию 60)")
	durationPtr := flag.Float64("duration", 0, "Длительность сэмплируемого окна в миллисекундах (по умолчанию 1000)")
	framesPtr := flag.Int("frames", 0, "Количество кадров (0 - выводится из fps и длительности)")
	beginPtr := flag.Float64("begin", 0, "Смещение начала анимации в миллисекундах")
	widthPtr := flag.Int("width", 0, "Ширина (0 - из документа)")
	heightPtr := flag.Int("height", 0, "Высота (0 - из документа)")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	qrPtr := flag.String("qr", "", "Ссылка для QR-кода в концовке видео")
	profilePtr := flag.String("profile", "", "Путь к YAML-профилю сэмплирования")
	saveProfilePtr := flag.String("save-profile", "", "Сохранить итоговую конфигурацию как YAML-профиль")
	statsPtr := flag.Bool("stats", false, "Показать статистику производительности")

	flag.Parse()

	width, height := *widthPtr, *heightPtr
	switch *presetPtr {
	case "16:9":
		width, height = 1280, 720
	case "9:16":
		width, height = 720, 1280
	case "4:5":
		width, height = 1080, 1350
	}

	inputPath := *inputPtr
	if inputPath == "" {
		latest, err := system.FindLatestSVG("input/svg")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите SVG в input/svg/", err)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	markup, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения %s: %v", inputPath, err)
	}

	finalOutput := *outputPtr
	if finalOutput == "" {
		baseName := filepath.Base(inputPath)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		finalOutput = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	encoderName, _ := system.GetBestH264Encoder()
	if encoderName != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
	}

	quality := *qualityPtr
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75 // Хорошее качество для VideoToolbox
		case "h264_nvenc":
			quality = 28 // Эквивалент CRF для NVENC
		default:
			quality = 23 // Стандартный CRF для x264
		}
	}

	cfg := &config.Config{
		InputPath:       inputPath,
		OutputVideo:     finalOutput,
		FPS:             *fpsPtr,
		TotalDurationMs: *durationPtr,
		FrameCount:      *framesPtr,
		BeginOffsetMs:   *beginPtr,
		Width:           width,
		Height:          height,
		VideoEncoder:    encoderName,
		Quality:         quality,
		Preset:          *presetPtr,
		QRLink:          *qrPtr,
		ShowStats:       *statsPtr,
	}

	if *profilePtr != "" {
		profile, err := config.ReadProfile(*profilePtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения профиля: %v", err)
		}
		profile.Apply(cfg)
		fmt.Printf("[*] Используется профиль: %s\n", *profilePtr)
	}

	ctrl := job.NewController()

	loaded := make(chan error, 1)
	ctrl.Load(string(markup), func(err error) { loaded <- err })
	if err := <-loaded; err != nil {
		log.Fatalf("[-] Ошибка загрузки: %v", err)
	}

	done := make(chan error, 1)
	startTime := time.Now()
	accepted := ctrl.Render(cfg, sampler.Callbacks{
		OnProgress: func(d, total int) {
			fmt.Printf("[>] Кадр: %d/%d\n", d+1, total)
		},
		OnDone: func(err error) { done <- err },
	})
	if !accepted {
		log.Fatalf("[-] Задание отклонено: %s", ctrl.ErrorMessage())
	}

	fmt.Println("--- [PROJECT: SVG SAMPLER] ---")
	fmt.Printf("[*] Источник: %s | Кадров: %d\n", cfg.InputPath, cfg.FrameCount)
	fmt.Printf("[*] Окно: %.0fms с %.0fms @ %.2f FPS\n", cfg.TotalDurationMs, cfg.BeginOffsetMs, cfg.FPS)
	fmt.Println("------------------------------")

	if cfg.Width > 0 && cfg.Height > 0 {
		if err := system.CheckFrameBudget(cfg.Width, cfg.Height, cfg.FrameCount); err != nil {
			log.Printf("[!] %v", err)
		}
	}

	if err := <-done; err != nil {
		log.Fatalf("[-] Ошибка сэмплирования: %v", err)
	}
	sampleTime := time.Since(startTime)

	if *saveProfilePtr != "" {
		profile := &config.Profile{
			Name:          strings.TrimSuffix(filepath.Base(*saveProfilePtr), ".yaml"),
			FPS:           cfg.FPS,
			DurationMs:    cfg.TotalDurationMs,
			FrameCount:    cfg.FrameCount,
			BeginOffsetMs: cfg.BeginOffsetMs,
			Width:         cfg.Width,
			Height:        cfg.Height,
			Quality:       cfg.Quality,
			QRLink:        cfg.QRLink,
		}
		if err := config.WriteProfile(profile, *saveProfilePtr); err != nil {
			log.Printf("[!] Не удалось сохранить профиль: %v", err)
		} else {
			fmt.Printf("[*] Профиль сохранен: %s\n", *saveProfilePtr)
		}
	}

	fmt.Println("[*] Сборка финального видео...")
	muxStart := time.Now()
	muxer := &video.FFmpegMuxer{}
	if err := muxer.Mux(context.Background(), ctrl.Frames(), cfg.OutputVideo, cfg); err != nil {
		log.Fatalf("[-] Ошибка сборки видео: %v", err)
	}

	if cfg.ShowStats {
		totalTime := time.Since(startTime)
		fps := float64(cfg.FrameCount) / totalTime.Seconds()
		fmt.Printf(
			"--- [PERFORMANCE REPORT] ---\n"+
				"Total Time: %.2fs\n"+
				"Sampling: %.2fs\n"+
				"Muxing: %.2fs\n"+
				"Effective FPS: %.2f\n"+
				"----------------------------\n",
			totalTime.Seconds(), sampleTime.Seconds(), time.Since(muxStart).Seconds(), fps,
		)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}
