package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelAppointmentHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/cancel_appointment"
	createAppointmentHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/create_appointment"
	createServiceHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/create_service"
	deleteServiceHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/delete_service"
	getAppointmentHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_appointment"
	getAvailableSlotsHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_available_slots"
	getPatientAppointmentsHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_patient_appointments"
	getProfessionalAppointmentsHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_professional_appointments"
	getScheduleHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_schedule"
	getServiceHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/get_service"
	listServicesHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/list_services"
	rescheduleAppointmentHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/reschedule_appointment"
	updateAppointmentStatusHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/update_appointment_status"
	updateScheduleHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/update_schedule"
	updateServiceHandler "github.com/m04kA/Clinic-BookingService/internal/api/handlers/update_service"
	"github.com/m04kA/Clinic-BookingService/internal/api/middleware"
	"github.com/m04kA/Clinic-BookingService/internal/config"
	slotsCache "github.com/m04kA/Clinic-BookingService/internal/infra/cache/slots"
	appointmentRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/appointment"
	scheduleRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/schedule"
	serviceRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/service"
	notifyServiceClient "github.com/m04kA/Clinic-BookingService/internal/integrations/notifyservice"
	profileServiceClient "github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
	appointmentsService "github.com/m04kA/Clinic-BookingService/internal/service/appointments"
	catalogService "github.com/m04kA/Clinic-BookingService/internal/service/catalog"
	scheduleService "github.com/m04kA/Clinic-BookingService/internal/service/schedule"
	createAppointmentUC "github.com/m04kA/Clinic-BookingService/internal/usecase/create_appointment"
	getAvailableSlotsUC "github.com/m04kA/Clinic-BookingService/internal/usecase/get_available_slots"
	rescheduleAppointmentUC "github.com/m04kA/Clinic-BookingService/internal/usecase/reschedule_appointment"
	"github.com/m04kA/Clinic-BookingService/pkg/dbmetrics"
	"github.com/m04kA/Clinic-BookingService/pkg/logger"
	"github.com/m04kA/Clinic-BookingService/pkg/metrics"
	"github.com/m04kA/Clinic-BookingService/pkg/simpletxmanager"
	"github.com/m04kA/Clinic-BookingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting Clinic-BookingService...")
	log.Info("Configuration loaded from config.toml")

	// Таймзона клиники: даты и время в API интерпретируются в ней, хранение в UTC
	location, err := time.LoadLocation(cfg.Clinic.Timezone)
	if err != nil {
		log.Fatal("Failed to load clinic timezone %q: %v", cfg.Clinic.Timezone, err)
	}
	log.Info("Clinic timezone: %s", cfg.Clinic.Timezone)

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Кеш слотов: redis, а при выключенном redis - no-op реализация
	var slotCache slotsCache.SlotCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to ping redis: %v", err)
		}
		defer redisClient.Close()

		slotCache = slotsCache.NewCache(redisClient, cfg.Redis.SlotTTL(), log)
		log.Info("Slot cache enabled (redis=%s, ttl=%s)", cfg.Redis.Addr, cfg.Redis.SlotTTL())
	} else {
		slotCache = slotsCache.NewNoop()
		log.Info("Slot cache disabled")
	}

	// Инициализируем интеграционных клиентов
	profileClient := profileServiceClient.NewClient(
		cfg.ProfileService.URL,
		time.Duration(cfg.ProfileService.Timeout)*time.Second,
		log,
	)
	notifyClient := notifyServiceClient.NewClient(
		cfg.NotifyService.URL,
		time.Duration(cfg.NotifyService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (ProfileService=%s timeout=%ds, NotifyService=%s timeout=%ds)",
		cfg.ProfileService.URL, cfg.ProfileService.Timeout, cfg.NotifyService.URL, cfg.NotifyService.Timeout)

	// Инициализируем репозитории и transaction manager (с метриками или без)
	var (
		appointmentRepository *appointmentRepo.Repository
		scheduleRepository    *scheduleRepo.Repository
		serviceRepository     *serviceRepo.Repository
	)

	type TxManager interface {
		Do(ctx context.Context, fn func(ctx context.Context) error) error
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		appointmentRepository = appointmentRepo.NewRepository(wrappedDB)
		scheduleRepository = scheduleRepo.NewRepository(wrappedDB)
		serviceRepository = serviceRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		appointmentRepository = appointmentRepo.NewRepository(db)
		scheduleRepository = scheduleRepo.NewRepository(db)
		serviceRepository = serviceRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем сервисы
	appointmentsSvc := appointmentsService.NewService(
		appointmentRepository,
		profileClient,
		notifyClient,
		slotCache,
		location,
		log,
	)
	scheduleSvc := scheduleService.NewService(
		scheduleRepository,
		profileClient,
		slotCache,
		txMgr,
		log,
	)
	catalogSvc := catalogService.NewService(serviceRepository, log)

	// Инициализируем use cases
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		appointmentRepository,
		scheduleRepository,
		serviceRepository,
		profileClient,
		slotCache,
		location,
		cfg.Clinic.MinBookingNoticeMinutes,
		cfg.Clinic.AdvanceBookingDays,
		log,
	)
	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointmentRepository,
		scheduleRepository,
		serviceRepository,
		profileClient,
		notifyClient,
		slotCache,
		txMgr,
		location,
		cfg.Clinic.MinBookingNoticeMinutes,
		cfg.Clinic.AdvanceBookingDays,
		log,
	)
	rescheduleAppointmentUseCase := rescheduleAppointmentUC.NewUseCase(
		appointmentRepository,
		scheduleRepository,
		slotCache,
		txMgr,
		location,
		cfg.Clinic.MinBookingNoticeMinutes,
		cfg.Clinic.AdvanceBookingDays,
		log,
	)

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	rescheduleAppointment := rescheduleAppointmentHandler.NewHandler(rescheduleAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentsSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(appointmentsSvc, log)
	updateAppointmentStatus := updateAppointmentStatusHandler.NewHandler(appointmentsSvc, log)
	getPatientAppointments := getPatientAppointmentsHandler.NewHandler(appointmentsSvc, log)
	getProfessionalAppointments := getProfessionalAppointmentsHandler.NewHandler(appointmentsSvc, log)
	getSchedule := getScheduleHandler.NewHandler(scheduleSvc, log)
	updateSchedule := updateScheduleHandler.NewHandler(scheduleSvc, log)
	listServices := listServicesHandler.NewHandler(catalogSvc, log)
	getService := getServiceHandler.NewHandler(catalogSvc, log)
	createService := createServiceHandler.NewHandler(catalogSvc, log)
	updateService := updateServiceHandler.NewHandler(catalogSvc, log)
	deleteService := deleteServiceHandler.NewHandler(catalogSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Каталог услуг
	api.HandleFunc("/services", listServices.Handle).Methods(http.MethodGet)
	api.HandleFunc("/services/{serviceId}", getService.Handle).Methods(http.MethodGet)

	// Расписание специалиста
	api.HandleFunc("/professionals/{professionalId}/schedule", getSchedule.Handle).Methods(http.MethodGet)

	// Доступные слоты для записи
	api.HandleFunc("/professionals/{professionalId}/slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют заголовки X-User-ID и X-User-Role)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(log))

	// --- Записи на прием ---
	booking := protected.PathPrefix("").Subrouter()
	booking.Use(middleware.RequireCapability(middleware.CapBookAppointments, log))
	booking.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)
	booking.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPost)
	booking.HandleFunc("/appointments/{appointmentId}/reschedule", rescheduleAppointment.Handle).Methods(http.MethodPost)

	viewing := protected.PathPrefix("").Subrouter()
	viewing.Use(middleware.RequireCapability(middleware.CapViewOwnAppointments, log))
	viewing.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	viewing.HandleFunc("/patients/{patientId}/appointments", getPatientAppointments.Handle).Methods(http.MethodGet)

	// --- Кабинет специалиста ---
	professional := protected.PathPrefix("").Subrouter()
	professional.Use(middleware.RequireCapability(middleware.CapManageAppointments, log))
	professional.HandleFunc("/appointments/{appointmentId}/status", updateAppointmentStatus.Handle).Methods(http.MethodPatch)
	professional.HandleFunc("/professionals/{professionalId}/appointments", getProfessionalAppointments.Handle).Methods(http.MethodGet)

	scheduleAdmin := protected.PathPrefix("").Subrouter()
	scheduleAdmin.Use(middleware.RequireCapability(middleware.CapManageSchedule, log))
	scheduleAdmin.HandleFunc("/professionals/{professionalId}/schedule", updateSchedule.Handle).Methods(http.MethodPut)

	// --- Управление каталогом (для администраторов) ---
	catalogAdmin := protected.PathPrefix("").Subrouter()
	catalogAdmin.Use(middleware.RequireCapability(middleware.CapManageCatalog, log))
	catalogAdmin.HandleFunc("/services", createService.Handle).Methods(http.MethodPost)
	catalogAdmin.HandleFunc("/services/{serviceId}", updateService.Handle).Methods(http.MethodPatch)
	catalogAdmin.HandleFunc("/services/{serviceId}", deleteService.Handle).Methods(http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
