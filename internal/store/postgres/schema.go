package postgres

// schema is applied at startup. Every table is keyed by the entity's
// remote id so re-harvesting is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS forum_presets (
    preset_id TEXT PRIMARY KEY,
    title_welcome TEXT NOT NULL,
    total_threads INTEGER NOT NULL DEFAULT 0,
    total_posts INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS category_names (
    category_id TEXT PRIMARY KEY,
    category_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS subforums (
    forum_id TEXT PRIMARY KEY,
    parent_id TEXT,
    preset_id TEXT NOT NULL,
    category_id TEXT NOT NULL,
    category_name TEXT NOT NULL,
    forum_name TEXT NOT NULL,
    forum_description TEXT NOT NULL,
    forum_type TEXT NOT NULL,
    title_welcome TEXT
);
CREATE TABLE IF NOT EXISTS forum_threads (
    thread_id TEXT PRIMARY KEY,
    thread_subject TEXT NOT NULL,
    thread_views TEXT NOT NULL,
    thread_type TEXT NOT NULL,
    thread_status TEXT NOT NULL,
    forum_id TEXT NOT NULL,
    username TEXT,
    category_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS forum_posts (
    post_id TEXT PRIMARY KEY,
    post_time TEXT NOT NULL,
    post_content TEXT NOT NULL,
    post_user_id TEXT NOT NULL,
    post_username TEXT NOT NULL,
    last_edit_time TEXT NOT NULL,
    last_edit_user TEXT NOT NULL,
    post_unhidden TEXT NOT NULL,
    post_admin_hidden TEXT NOT NULL,
    post_locked TEXT NOT NULL,
    thread_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_forum_threads_forum_id ON forum_threads(forum_id);
CREATE INDEX IF NOT EXISTS idx_forum_posts_thread_id ON forum_posts(thread_id);
CREATE TABLE IF NOT EXISTS images (
    image_url TEXT PRIMARY KEY,
    image_content BYTEA
);
CREATE TABLE IF NOT EXISTS applications (
    application_id TEXT PRIMARY KEY,
    site_id TEXT NOT NULL,
    preset_id TEXT NOT NULL,
    title TEXT NOT NULL,
    user_ip TEXT NOT NULL,
    created TEXT NOT NULL,
    username TEXT NOT NULL,
    user_id TEXT NOT NULL,
    user_data JSONB
);
`
