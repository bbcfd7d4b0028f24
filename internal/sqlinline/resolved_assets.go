package sqlinline

const QInsertResolvedAsset = `--sql 2ca0e9b3-7ab3-4738-aa70-f96eef67f2f8
insert into resolved_assets(id, keyword, download_url, status, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, now(), now());
`

const QMarkResolvedStored = `--sql 98d4c000-7399-4be4-bc06-08a0574c3427
update resolved_assets
set status = 'stored',
    storage_key = $2::text,
    mime = $3::text,
    checksum = $4::text,
    bytes = $5::bigint,
    error_message = '',
    updated_at = now()
where id = $1::uuid;
`

const QMarkResolvedFailed = `--sql 79a166ea-8a3c-43ef-84eb-2a78e8c6dd16
update resolved_assets
set status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSelectResolvedByID = `--sql 9b9749c7-a8a5-4e16-a7f3-c3f29fbfc43a
select id, keyword, download_url, status, storage_key, mime, bytes, checksum, error_message, created_at, updated_at
from resolved_assets
where id = $1::uuid
limit 1;
`

const QListResolved = `--sql f61a032f-85b9-472d-b948-36255f4bbca0
select id, keyword, download_url, status, storage_key, mime, bytes, checksum, error_message, created_at, updated_at
from resolved_assets
order by created_at desc
limit $1::int offset $2::int;
`
