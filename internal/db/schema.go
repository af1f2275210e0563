package db

// Schema per database category. The user store carries every
// user-specific table; content stores carry only their question tables.

const UserStoreSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT DEFAULT 'student',
	is_active INTEGER DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_login TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_bookmarks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	subject TEXT NOT NULL,
	topic TEXT NOT NULL,
	source_database TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, question_id, source_database)
);

CREATE TABLE IF NOT EXISTS user_notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	note_text TEXT NOT NULL,
	source_database TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, question_id)
);

CREATE TABLE IF NOT EXISTS user_topic_completion (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	subject TEXT NOT NULL,
	topic TEXT NOT NULL,
	source_database TEXT NOT NULL,
	completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, subject, topic, source_database)
);

CREATE TABLE IF NOT EXISTS user_analytics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	date DATE NOT NULL,
	questions_viewed INTEGER DEFAULT 0,
	topics_completed INTEGER DEFAULT 0,
	time_spent_minutes INTEGER DEFAULT 0,
	UNIQUE(user_id, date)
);

CREATE TABLE IF NOT EXISTS mcq_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	test_id INTEGER NOT NULL,
	score INTEGER NOT NULL,
	total_questions INTEGER NOT NULL,
	percentage REAL NOT NULL,
	time_taken INTEGER,
	detailed_results TEXT,
	completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS test_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sitting_id TEXT NOT NULL,
	test_id INTEGER NOT NULL,
	answers TEXT NOT NULL DEFAULT '{}',
	marked TEXT NOT NULL DEFAULT '[]',
	skipped TEXT NOT NULL DEFAULT '[]',
	current_question INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(sitting_id, test_id)
);

CREATE TABLE IF NOT EXISTS user_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	question_id INTEGER NOT NULL,
	user_answer TEXT,
	correct_answer TEXT NOT NULL,
	is_correct INTEGER NOT NULL,
	explanation TEXT,
	attempt_number INTEGER NOT NULL DEFAULT 1,
	submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS admin_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	admin_id INTEGER,
	action TEXT NOT NULL,
	target TEXT,
	details TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS system_settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	setting_key TEXT UNIQUE NOT NULL,
	setting_value TEXT,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS database_migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_database TEXT NOT NULL,
	migrated INTEGER DEFAULT 0,
	skipped INTEGER DEFAULT 0,
	failed INTEGER DEFAULT 0,
	run_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const QbankSchema = `
CREATE TABLE IF NOT EXISTS qbank (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	chapter TEXT,
	topic TEXT,
	question TEXT NOT NULL,
	answer TEXT,
	premium INTEGER DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const MCQSchema = `
CREATE TABLE IF NOT EXISTS mcq_questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	chapter TEXT,
	topic TEXT,
	question TEXT NOT NULL,
	option_a TEXT NOT NULL,
	option_b TEXT NOT NULL,
	option_c TEXT NOT NULL,
	option_d TEXT NOT NULL,
	correct_option TEXT NOT NULL,
	explanation TEXT,
	difficulty TEXT DEFAULT 'medium',
	year_of_question TEXT,
	source TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mcq_tests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_name TEXT NOT NULL,
	subject TEXT NOT NULL,
	topic_filter TEXT,
	difficulty_filter TEXT,
	question_count INTEGER NOT NULL,
	duration_minutes INTEGER DEFAULT 30,
	created_by TEXT,
	is_public INTEGER DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mcq_test_questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	question_order INTEGER NOT NULL
);
`

const TestSchema = `
CREATE TABLE IF NOT EXISTS test_info (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_name TEXT NOT NULL,
	description TEXT,
	duration_minutes INTEGER DEFAULT 60,
	start_time TIMESTAMP,
	end_time TIMESTAMP,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS test_questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_id INTEGER NOT NULL,
	subject TEXT,
	topic TEXT,
	question TEXT NOT NULL,
	option_a TEXT NOT NULL,
	option_b TEXT NOT NULL,
	option_c TEXT NOT NULL,
	option_d TEXT NOT NULL,
	correct_answer TEXT NOT NULL,
	explanation TEXT
);
`

const AdminSchema = `
CREATE TABLE IF NOT EXISTS admin_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	admin_id INTEGER,
	action TEXT NOT NULL,
	target TEXT,
	details TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
