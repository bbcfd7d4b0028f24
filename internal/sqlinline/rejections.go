package sqlinline

const QInsertRejection = `--sql 6caeb775-7aa3-4108-9e57-fb538fab9cf4
insert into asset_rejections(source_url, keyword, reason, created_at)
values ($1::text, $2::text, $3::text, $4::timestamptz);
`

const QListRejections = `--sql 2edad7e0-a41b-48b3-931d-4748f77da43d
select source_url, keyword, reason, created_at
from asset_rejections
where ($1::text = '' or keyword = $1::text)
order by created_at desc
limit $2::int;
`
